/*
Package log provides structured logging for machinery using zerolog.

The log package wraps zerolog to provide JSON or console structured logging
with machine/cluster-scoped child loggers, configurable levels, and a
translator for the logrus-formatted lines docker-machine writes to its own
stderr, so subprocess output and engine-level messages share one sink.

# Usage

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	log.Info("cluster bound")

	machineLog := log.WithMachine("dev-web1")
	machineLog.Info().Msg("machine created")

	clusterLog := log.WithCluster("dev")
	clusterLog.Error().Err(err).Msg("bind failed")

Subprocess output from docker-machine is logrus-formatted
(`time="..." level=info msg="..."`); EmitToolLine recognizes these lines and
re-emits them through Logger at a translated severity instead of dumping
them verbatim at debug level. Lines from docker and docker-compose, which
don't use logrus, are logged verbatim at debug level.

	for _, line := range output {
		log.EmitToolLine("docker-machine", line)
	}
*/
package log
