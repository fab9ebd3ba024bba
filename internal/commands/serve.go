// internal/commands/serve.go
package mmrag

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mwiater/mmrag/internal/rag"
	"github.com/mwiater/mmrag/internal/server"
)

var (
	serveAddr    string
	serveOrigins []string
)

// serveCmd exposes a saved index over HTTP.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve queries against a saved index over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		sess, err := openSession(GetConfig(), time.Minute)
		if err != nil {
			return err
		}
		defer sess.Close()

		ix, err := sess.loadIndex(ctx)
		if err != nil {
			return err
		}
		chain := rag.NewChain(ix, sess.provider, sess.cfg)
		srv := server.New(chain, ix, server.Options{
			Model:          sess.cfg.MMLLM,
			RequestTimeout: sess.cfg.RequestTimeout(),
			AllowedOrigins: serveOrigins,
		})
		cmd.Printf("serving %d entries from %s on %s\n", ix.Len(), sess.cfg.StorageDir, serveAddr)
		return server.ListenAndServe(ctx, serveAddr, srv.Routes())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "listen address")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "cors-origin", nil, "allowed CORS origins (defaults to localhost)")
	rootCmd.AddCommand(serveCmd)
}
