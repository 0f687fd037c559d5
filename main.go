package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"gosuda.org/portal/sdk"
)

var rootCmd = &cobra.Command{
	Use:   "watchzone",
	Short: "WatchZone: greenlisted group chat with synchronized video playback",
	RunE:  runServer,
}

var (
	flagAddr      string
	flagGreenlist string
	flagDist      string
	flagRelayURLs []string
	flagName      string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagAddr, "addr", ":3001", "local HTTP listen address")
	flags.StringVar(&flagGreenlist, "greenlist", "greenlist.json", "path to the greenlist file (allowedNames, mediaDirectories)")
	flags.StringVar(&flagDist, "dist", "", "optional directory with a built frontend; embedded shell is used when empty")
	flags.StringSliceVar(&flagRelayURLs, "relay-url", nil, "optional portal relayserver base URL(s); local serving only when empty")
	flags.StringVar(&flagName, "name", "watchzone", "backend display name for the relay listener")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute watchzone command")
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	greenlist, err := LoadGreenlist(flagGreenlist)
	if err != nil {
		return fmt.Errorf("load greenlist: %w", err)
	}
	log.Info().Int("names", len(greenlist.AllowedNames)).Int("dirs", len(greenlist.MediaDirectories)).Msg("[watchzone] greenlist loaded")

	catalog := NewCatalog(greenlist.MediaDirectories)
	catalog.Start()

	session := NewSession(greenlist, catalog)
	session.Start()

	handler := NewHTTPServer(session, greenlist.MediaDirectories, flagDist).Router()

	httpSrv := &http.Server{
		Addr:              flagAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Info().Msgf("[watchzone] serving locally at http://127.0.0.1%s", flagAddr)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("[watchzone] local http stopped")
		}
	}()

	// Optional: expose the same handler over a portal relay.
	var relayClose func()
	if len(flagRelayURLs) > 0 {
		client, err := sdk.NewClient(func(c *sdk.RDClientConfig) { c.BootstrapServers = flagRelayURLs })
		if err != nil {
			return fmt.Errorf("new relay client: %w", err)
		}
		cred := sdk.NewCredential()
		ln, err := client.Listen(cred, flagName, []string{"http/1.1"})
		if err != nil {
			return fmt.Errorf("relay listen: %w", err)
		}
		relayClose = func() {
			_ = ln.Close()
			_ = client.Close()
		}
		go func() {
			if err := http.Serve(ln, handler); err != nil && err != http.ErrServerClosed && ctx.Err() == nil {
				log.Error().Err(err).Msg("[watchzone] relay http error")
			}
		}()
	}

	<-ctx.Done()
	if relayClose != nil {
		relayClose()
	}
	sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(sctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("[watchzone] http server shutdown error")
	}
	session.Close()
	catalog.Close()
	log.Info().Msg("[watchzone] shutdown complete")
	return nil
}
