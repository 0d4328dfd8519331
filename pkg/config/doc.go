// Package config loads process configuration from environment variables.
//
// It combines github.com/joho/godotenv, which reads an optional .env file in
// the working directory, with github.com/caarlos0/env/v11, which maps variables
// onto struct fields through `env` and `envDefault` tags.
//
// Parsed values are cached per type (and per prefix), so packages can call
// Load from constructors without re-reading the environment:
//
//	type Options struct {
//	    MaxAttempts int `env:"MAX_ATTEMPTS" envDefault:"3"`
//	}
//
//	var opts Options
//	if err := config.LoadWithPrefix(&opts, "AUTHPRESS_"); err != nil {
//	    return err
//	}
//
// Tests that mutate the environment should call Reset first.
//
// # Error Handling
//
// Parsing failures wrap ErrParsingConfig; a nil target yields ErrNilPointer.
package config
