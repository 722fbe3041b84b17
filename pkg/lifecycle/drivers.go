package lifecycle

import (
	"fmt"

	"github.com/efrecon/machinery/pkg/log"
	"github.com/efrecon/machinery/pkg/types"
)

// driverOptionNames maps the uniform cpu/memory/disk-size fields to a
// driver's own `--<driver>-<option>` flag names (e.g. `--virtualbox-
// cpu-count`), following the naming convention every docker-machine driver
// uses for its own flags.
type driverOptionNames struct {
	CPU        string
	Memory     string
	Disk       string
	DiskScale  int // divisor applied to Size (MB) before passing to this driver
}

// driverTable covers the drivers spec.md names explicitly; an unknown
// driver produces a warning and the uniform field is skipped rather than
// guessed at.
var driverTable = map[string]driverOptionNames{
	"virtualbox":       {"virtualbox-cpu-count", "virtualbox-memory", "virtualbox-disk-size", 1},
	"vmwarefusion":     {"vmwarefusion-cpu-count", "vmwarefusion-memory-size", "vmwarefusion-disk-size", 1},
	"vmwarevsphere":    {"vmwarevsphere-cpu-count", "vmwarevsphere-memory-size", "vmwarevsphere-disk-size", 1},
	"vmwarevcloudair":  {"vmwarevcloudair-cpu-count", "vmwarevcloudair-memory-size", "vmwarevcloudair-disk-size", 1},
	"softlayer":        {"softlayer-cpu", "softlayer-memory", "softlayer-disk-size", 1},
	"hyper-v":          {"hyper-v-cpu-count", "hyper-v-memory", "hyper-v-disk-size", 1},
	"kvm":              {"kvm-cpu-count", "kvm-memory", "kvm-disk-size", 1},
	"amazonec2":        {"", "", "amazonec2-root-size", 1024}, // ec2 has no cpu/memory flags, disk in GB
	"digitalocean":     {"", "digitalocean-size-slug", "", 1},
	"google":           {"", "", "google-disk-size", 1024},
	"exoscale":         {"", "", "exoscale-disk-size", 1},
}

// DriverFlags translates spec's uniform cpu/memory/size/options fields
// into a docker-machine create argv fragment for spec.Driver (§4.2).
// Boolean options become bare flags when true and are omitted when false;
// everything else under `options:` is forwarded `--`-prefixed verbatim.
func DriverFlags(spec *types.MachineSpec) []string {
	names, known := driverTable[spec.Driver]
	if !known {
		log.WithMachine(spec.Name).Warn().
			Str("driver", spec.Driver).
			Msg("unknown driver, cpu/memory/size fields not translated")
	}

	var argv []string
	if known && names.CPU != "" && spec.CPU > 0 {
		argv = append(argv, "--"+names.CPU, fmt.Sprintf("%d", spec.CPU))
	}
	if known && names.Memory != "" && spec.Memory > 0 {
		argv = append(argv, "--"+names.Memory, fmt.Sprintf("%d", spec.Memory))
	}
	if known && names.Disk != "" && spec.Size > 0 {
		scale := names.DiskScale
		if scale == 0 {
			scale = 1
		}
		argv = append(argv, "--"+names.Disk, fmt.Sprintf("%d", spec.Size/scale))
	}

	for key, value := range spec.Options {
		flag := "--" + key
		switch value {
		case "true":
			argv = append(argv, flag)
		case "false":
			// omitted
		default:
			argv = append(argv, flag, value)
		}
	}

	return argv
}
