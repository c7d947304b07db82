package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmehdipour/order-alert/internal/config"
	"github.com/jmehdipour/order-alert/internal/kafka"
	"github.com/jmehdipour/order-alert/internal/model"
)

var (
	publishTotal float64
	publishPhone string
	publishCount int
)

// demoEvents cover notify, below threshold, no phone and the exact boundary.
var demoEvents = []model.OrderEvent{
	{OrderTotal: 150.0, PhoneNumber: "+447000000000"},
	{OrderTotal: 50, PhoneNumber: "+447000000000"},
	{OrderTotal: 200},
	{OrderTotal: 100, PhoneNumber: "+447000000000"},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish order events to the stream (dev helper)",
	Long: "Without --total the four demo events are published; with --total a single event " +
		"is published --count times.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		kc, err := kafka.FromAppConfig(cfg.Kafka)
		if err != nil {
			return err
		}

		events := demoEvents
		if cmd.Flags().Changed("total") {
			events = make([]model.OrderEvent, 0, publishCount)
			for i := 0; i < publishCount; i++ {
				events = append(events, model.OrderEvent{OrderTotal: publishTotal, PhoneNumber: publishPhone})
			}
		}

		producer := kafka.NewProducerFromConfig(kc)
		defer producer.Close()

		for _, ev := range events {
			payload, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("marshal event: %w", err)
			}
			if err := producer.Publish(cmd.Context(), ev.PhoneNumber, payload); err != nil {
				return fmt.Errorf("publish to %s: %w", kc.Topic, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), ">> published %s\n", payload)
		}

		return nil
	},
}

func init() {
	publishCmd.Flags().Float64Var(&publishTotal, "total", 0, "order_total of the event")
	publishCmd.Flags().StringVar(&publishPhone, "phone", "", "phone_number of the event (omitted when empty)")
	publishCmd.Flags().IntVar(&publishCount, "count", 1, "how many copies to publish")
}
