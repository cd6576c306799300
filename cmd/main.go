package main

import (
	"log"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var Version = "dev"

// Global loggers for different output streams
var (
	infoLogger  = log.New(os.Stdout, "", log.LstdFlags)
	errorLogger = log.New(os.Stderr, "", log.LstdFlags)
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "cardbook",
		Short:         "Business-card contacts API with IP geolocation enrichment",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			infoLogger.Printf("cardbook %s (%s) pid=%d runtime=%s/%s", cmd.Name(), Version, os.Getpid(), runtime.GOOS, runtime.GOARCH)
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(resolveCmd())

	if err := rootCmd.Execute(); err != nil {
		errorLogger.Println(err)
		os.Exit(1)
	}
}
