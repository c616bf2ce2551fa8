package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/authcore/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   TCP bind address (e.g., ":5050")
//	-d string   PostgreSQL DSN
//	-s string   session token HMAC secret key
//	-t int      session token validity, minutes
//	-k int      lockout threshold (failed attempts)
//	-w int      lockout window, minutes
//	-i int      session idle timeout, seconds
//	-p int      registry sweep interval, seconds
//	-r int      connection read timeout, seconds
//	-u string   bootstrap admin username
//	-x string   bootstrap admin password
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers and converted to time.Duration values.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-k", "-w", "-i", "-p", "-r", "-u", "-x"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "session token validity (in minutes)")
	fs.IntVar(&config.LockoutThreshold, "k", config.LockoutThreshold, "failed attempts before lockout")
	lockoutWindow := fs.Int("w", int(config.LockoutWindow.Minutes()), "lockout window (in minutes)")
	idleTimeout := fs.Int("i", int(config.IdleTimeout.Seconds()), "session idle timeout (in seconds)")
	sweepInterval := fs.Int("p", int(config.SweepInterval.Seconds()), "sweep interval (in seconds)")
	readTimeout := fs.Int("r", int(config.ReadTimeout.Seconds()), "connection read timeout (in seconds)")

	fs.StringVar(&config.AdminUsername, "u", config.AdminUsername, "bootstrap admin username")
	fs.StringVar(&config.AdminPassword, "x", config.AdminPassword, "bootstrap admin password")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
	config.LockoutWindow = time.Duration(*lockoutWindow) * time.Minute
	config.IdleTimeout = time.Duration(*idleTimeout) * time.Second
	config.SweepInterval = time.Duration(*sweepInterval) * time.Second
	config.ReadTimeout = time.Duration(*readTimeout) * time.Second
}
