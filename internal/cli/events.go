package cli

import (
	"context"
	"encoding/json"

	"swimcoach-be/pkg/events"
	pktNats "swimcoach-be/pkg/nats"

	"github.com/spf13/cobra"
)

var (
	eventsURL     string
	eventsPattern string
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Tail domain events published by the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		sub, err := pktNats.NewSubscriber(eventsURL, nil)
		if err != nil {
			return err
		}
		defer sub.Close()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		err = sub.Subscribe(ctx, eventsPattern, "", func(_ context.Context, ev events.Event) error {
			data, _ := json.Marshal(ev.Payload())
			cmd.Printf("%s %s %s\n", ev.Timestamp().Format("15:04:05"), ev.EventType(), data)
			return nil
		})
		if err != nil {
			return err
		}

		<-ctx.Done()
		return nil
	},
}

func init() {
	eventsCmd.Flags().StringVar(&eventsURL, "nats", "nats://localhost:4222", "NATS server URL")
	eventsCmd.Flags().StringVar(&eventsPattern, "type", ">", "event type pattern, e.g. document.*")
	rootCmd.AddCommand(eventsCmd)
}
