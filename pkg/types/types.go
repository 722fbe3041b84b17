// Package types defines the data model machinery builds and binds: the
// Cluster parsed from YAML, the Machines it declares, and the live state
// those machines acquire once bound against `docker-machine ls`.
package types

import "time"

// Cluster is the product of parsing one YAML cluster file.
type Cluster struct {
	Name         string
	Origin       string // absolute path to the YAML file this cluster was parsed from
	Machines     []*Machine
	Networks     []*Network
	Applications []*Application
	Environment  map[string]string // cluster-wide environment, visible to every machine
	Clustering   ClusteringMode
}

// ClusteringMode selects between classic Swarm (token-based discovery) and
// Swarm Mode (manager/worker join protocol).
type ClusteringMode string

const (
	ClusteringDockerSwarm ClusteringMode = "docker swarm"
	ClusteringSwarmMode   ClusteringMode = "swarm mode"
)

// MachineSpec is everything about a machine that comes from the YAML: the
// declarative intent. It never changes once parsed, except for the
// resolution passes (include/extends, prefix-qualification) that run before
// binding.
type MachineSpec struct {
	ShortName string // user-visible name, as written in the YAML
	Name      string // fully-qualified name: prefix-shortname
	Origin    string // path to the YAML this machine was declared in

	Driver string // always set after parsing, defaulted from CLI/config
	CPU    int
	Memory int // MiB
	Size   int // MB, root disk

	Master bool
	// Swarm is either a plain bool (classic Swarm membership) or a
	// per-mode option map (Swarm Mode join options); nil means "use the
	// cluster default for the active clustering mode".
	Swarm interface{}

	Labels     map[string]string
	Ports      []PortForward
	Shares     []Share
	Images     []string
	Compose    []ComposeProject
	Registries []Registry
	Aliases    []string
	Files      []FileCopy
	Prelude    []ExecSpec
	Addendum   []ExecSpec

	Environment map[string]string
	EnvFile     []string // paths, relative to dirname(Origin)

	// Options carries driver-specific flags verbatim, keyed the way
	// `docker-machine create --driver X` expects (see the per-driver
	// translation table in the lifecycle package).
	Options map[string]string
}

// PortForward is a single `ports:` entry: HOST[:GUEST][/PROTO].
type PortForward struct {
	Host     int
	Guest    int // 0 means "same as Host"
	Protocol string // "tcp" or "udp", defaults to "tcp"
}

// Share describes one host-to-machine shared folder.
type Share struct {
	Host    string // path or URL on the host (or host resolved via Mount VFS)
	Guest   string // absolute path inside the machine
	Options map[string]string
}

// ComposeProject names one docker-compose project to bring up on this
// machine, or one stack to deploy when the cluster is in Swarm Mode.
type ComposeProject struct {
	Name string
	File string // relative to dirname(Origin)
	// Keep holds the YAML `keep:` flag of this project. It is parsed but
	// not read by any command; `machinery destroy` does not consult it.
	Keep bool
}

// Registry is a login spec run before images/compose steps that need it.
type Registry struct {
	URL      string
	Username string
	Password string
}

// FileCopy copies a host file into the machine before prelude runs.
type FileCopy struct {
	Host  string // relative to dirname(Origin)
	Guest string
}

// ExecSpec is one command run over SSH, either before (`prelude`) or after
// (`addendum`) the rest of machine initialization.
type ExecSpec struct {
	Command []string
}

// MachineState is everything learned by binding a MachineSpec against the
// output of `docker-machine ls` (and, in Swarm Mode, `docker node ls`). It
// is rebuilt wholesale on every bind, never merged field-by-field.
type MachineState struct {
	State      MachineLifecycleState
	URL        string // docker endpoint, e.g. tcp://192.168.99.100:2376
	Active     bool   // this machine is the active docker-machine "default"
	SwarmState string // raw `swarm` column, classic Swarm only
	BoundAt    time.Time
}

// MachineLifecycleState mirrors the `STATE` column docker-machine reports,
// plus Unknown for a spec with no corresponding live machine yet.
type MachineLifecycleState string

const (
	StateUnknown MachineLifecycleState = "Unknown"
	StateCreated MachineLifecycleState = "Created"
	StateRunning MachineLifecycleState = "Running"
	StateStopped MachineLifecycleState = "Stopped"
	StateError   MachineLifecycleState = "Error"
	StateTimeout MachineLifecycleState = "Timeout"
)

// Machine is a MachineSpec bound to its current MachineState. Everything
// that operates on a live machine takes a *Machine; everything that only
// needs declared intent (YAML resolution, validation) takes a *MachineSpec.
type Machine struct {
	Spec  *MachineSpec
	State *MachineState
}

// Network is one `networks:` entry: a Swarm Mode overlay network created
// ahead of stack deploys.
type Network struct {
	Name       string
	Driver     string // defaults to "overlay"
	Attachable bool   // defaults to true
	Scope      string // defaults to "swarm"
}

// Application is one Swarm-Mode stack: a name and the compose file that
// defines it.
type Application struct {
	Name string
	File string // relative to dirname(cluster Origin)
}

// DiscoveryRecord is one row of the per-cluster discovery cache: the
// resolved addresses for a single machine or alias.
type DiscoveryRecord struct {
	Name      string // machine name or alias, namespaced MACHINERY_ prefix applied on write
	Interface string
	IPv4      string
	IPv6      string
	Hostname  string
}

// TokenRecord groups the Swarm tokens of one cluster: classic Swarm carries
// a single discovery token, Swarm Mode a manager and a worker join token.
// The `.swt` side-cars themselves store only the tokens; ManagerAddr and
// MintedAt are not written to them.
type TokenRecord struct {
	ClusterName  string
	DiscoveryURL string // classic Swarm only
	ManagerToken string // Swarm Mode only
	WorkerToken  string // Swarm Mode only
	ManagerAddr  string // Swarm Mode only: advertise address tokens were minted against
	MintedAt     time.Time
}
