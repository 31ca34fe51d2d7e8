// Package authd wires the auth core from configuration.
//
// New opens the configured storage backend, connects Redis and Kafka when
// they are configured, builds the event sinks and returns an App whose
// Service is the ready orchestrator. Applications that expose the auth
// operations over their own transport embed it like this:
//
//	var cfg authd.Config
//	config.MustLoad(&cfg)
//
//	app, err := authd.New(ctx, cfg, authd.WithLogger(log), authd.WithRegisterer(prometheus.DefaultRegisterer))
//	if err != nil {
//		return err
//	}
//	defer app.Close()
//
//	go app.Sweeper().Run(ctx)
//	res, err := app.Service.Login(ctx, email, password)
//
// The authd command uses the same constructor to run the sweeper and serve
// readiness and metrics for a deployment.
package authd
