// Package redis connects to Redis for the refresh-token store and the
// Redis stream event sink.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Healthcheck adapts a client to the daemon's readiness checks.
package redis
