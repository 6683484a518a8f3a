package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wavegate/wavegate/pkg/access"
	"github.com/wavegate/wavegate/pkg/hooks"
	"github.com/wavegate/wavegate/pkg/logging"
	"github.com/wavegate/wavegate/pkg/policy"
	"github.com/wavegate/wavegate/pkg/registry"
	"github.com/wavegate/wavegate/pkg/status"
	"github.com/wavegate/wavegate/pkg/subscription"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay scripted access checks against an in-memory host",
	Long: `Builds the access module against an in-memory host server, connects a
handful of clients and streams, and replays a fixed set of access checks and
subscription events, printing the verdict for each.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}

		overrides, err := policy.LoadOverrides(config.PolicyFile)
		if err != nil {
			return err
		}

		bus := hooks.NewBus()
		reg := registry.NewMemoryRegistry()
		mod, err := access.New(access.Options{
			Bus:           bus,
			Objects:       reg,
			Overrides:     overrides,
			PortalTimeout: time.Duration(config.PortalTimeout) * time.Second,
			Logger:        logging.App,
		})
		if err != nil {
			return err
		}
		defer mod.Close()
		reg.Watch(mod)

		if config.StatusDir != "" {
			w, err := status.New(config.StatusDir, time.Second, version)
			if err != nil {
				return err
			}
			w.SetProvider(mod)
			if err := w.WriteStartFile(); err != nil {
				return err
			}
			defer func() {
				w.WriteStopFile("simulation finished", time.Since(mod.StartTime()))
			}()
		}

		// two local clients, one owning a playback and one a record stream
		pid := int32(os.Getpid())
		reg.PutClient(&registry.Client{Index: 1, PID: pid, CredsValid: true})
		reg.AuthClient(1)
		reg.PutClient(&registry.Client{Index: 2, PID: pid, CredsValid: true})
		reg.AuthClient(2)
		reg.AddSinkInput(&registry.SinkInput{Index: 42, Client: 1})
		reg.AddSourceOutput(&registry.SourceOutput{Index: 7, Client: 2})

		checks := []struct {
			label string
			req   hooks.Request
		}{
			{"client 1 lists sinks", hooks.Request{Hook: hooks.GetSinkInfo, ClientIndex: 1, ObjectIndex: 0}},
			{"client 1 adjusts its own stream", hooks.Request{Hook: hooks.SetSinkInputVolume, ClientIndex: 1, ObjectIndex: 42}},
			{"client 2 adjusts client 1's stream", hooks.Request{Hook: hooks.SetSinkInputVolume, ClientIndex: 2, ObjectIndex: 42}},
			{"client 2 mutes its own record stream", hooks.Request{Hook: hooks.SetSourceOutputMute, ClientIndex: 2, ObjectIndex: 7}},
			{"client 1 kills client 2", hooks.Request{Hook: hooks.KillClient, ClientIndex: 1, ObjectIndex: 2}},
			{"unknown client stats the server", hooks.Request{Hook: hooks.Stat, ClientIndex: 99, ObjectIndex: 0}},
		}

		fmt.Println("access checks:")
		for _, c := range checks {
			req := c.req
			fmt.Printf("  %-40s %s\n", c.label, bus.Fire(&req))
		}

		events := []struct {
			label  string
			client uint32
			typ    subscription.EventType
			fac    subscription.Facility
			object uint32
		}{
			{"client 2 told about new sink", 2, subscription.EventNew, subscription.FacilitySink, 0},
			{"client 2 told about client 1's stream", 2, subscription.EventNew, subscription.FacilitySinkInput, 42},
			{"client 1 told about its own stream", 1, subscription.EventNew, subscription.FacilitySinkInput, 42},
			{"client 1 stream change", 1, subscription.EventChange, subscription.FacilitySinkInput, 42},
			{"client 1 stream removed", 1, subscription.EventRemove, subscription.FacilitySinkInput, 42},
			{"client 2 sees stream removal", 2, subscription.EventRemove, subscription.FacilitySinkInput, 42},
		}

		fmt.Println("subscription events:")
		for _, e := range events {
			req := hooks.Request{
				Hook:        hooks.FilterSubscribeEvent,
				ClientIndex: e.client,
				ObjectIndex: e.object,
				Event:       uint32(subscription.MakeEvent(e.typ, e.fac)),
			}
			fmt.Printf("  %-40s %s\n", e.label, bus.Fire(&req))
		}

		fmt.Printf("decisions made: %d, clients tracked: %d\n", mod.DecisionCount(), mod.ClientCount())
		return nil
	},
}
