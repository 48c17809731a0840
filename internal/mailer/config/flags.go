package config

import (
	"flag"
	"os"

	"github.com/equipsense/equipsense/internal/flagx"
)

// parseFlags populates mailer Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":3001")
//	-h string   SMTP relay host
//	-p int      SMTP relay port
//	-u string   SMTP user
//	-w string   SMTP password
//	-f string   From header for outgoing mail
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-h", "-p", "-u", "-w", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.RunAddr, "a", config.RunAddr, "address and port to run mailer")
	fs.StringVar(&config.SMTPHost, "h", config.SMTPHost, "SMTP host")
	fs.IntVar(&config.SMTPPort, "p", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.SMTPUser, "u", config.SMTPUser, "SMTP user")
	fs.StringVar(&config.SMTPPassword, "w", config.SMTPPassword, "SMTP password")
	fs.StringVar(&config.From, "f", config.From, "from address for outgoing mail")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
