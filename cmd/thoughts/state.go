package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/introspection"
	"github.com/spf13/cobra"

	"github.com/aretw0/thoughts"
	"github.com/aretw0/thoughts/pkg/core"
)

var stateDiagram bool

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the state of every component",
	Long: `State mounts the list once and dumps the introspection state of the
store, the gate, the input controller and the list. --diagram prints a
Mermaid tree instead.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		strategy, err := core.ParseStrategy(cfg.Strategy)
		if err != nil {
			fatal("Error parsing strategy", err)
		}
		app, err := openApp(ctx, strategy, true)
		if err != nil {
			fatal("Error initializing thoughts", err)
		}
		defer app.Close()
		app.Wait()

		state, _ := app.State().(thoughts.AppState)

		if stateDiagram {
			config := introspection.DefaultDiagramConfig()
			config.SecondaryID = "thoughts"
			config.SecondaryLabel = "Thoughts Topology"
			fmt.Println(introspection.TreeDiagram(buildTree(state), config))
			return
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(state); err != nil {
			fatal("Error encoding JSON", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.Flags().BoolVar(&stateDiagram, "diagram", false, "Print a Mermaid diagram")
}

type stateNode struct {
	Name     string
	Status   string
	Metadata map[string]string
	Children []stateNode
}

// buildTree maps component states onto the status classes of
// introspection.DefaultStyles.
func buildTree(state thoughts.AppState) stateNode {
	gate, _ := state.Gate.(core.GateState)
	list, _ := state.List.(core.ListModelState)
	input, _ := state.Input.(core.InputState)

	gateStatus := "running"
	if !gate.Online {
		gateStatus = "suspended"
	}
	listStatus := "running"
	switch list.State {
	case core.StateOffline.String():
		listStatus = "suspended"
	case core.StateLoading.String():
		listStatus = "pending"
	}

	return stateNode{
		Name:   "App",
		Status: "running",
		Metadata: map[string]string{
			"type":    "container",
			"adapter": cfg.Adapter,
		},
		Children: []stateNode{
			{
				Name:   "Gate",
				Status: gateStatus,
				Metadata: map[string]string{
					"type":         "process",
					"connectivity": gate.Connectivity,
				},
			},
			{
				Name:   "List",
				Status: listStatus,
				Metadata: map[string]string{
					"type":     "process",
					"strategy": list.Strategy,
					"notes":    fmt.Sprintf("%d", list.Notes),
				},
			},
			{
				Name:   "Input",
				Status: "running",
				Metadata: map[string]string{
					"type":   "process",
					"issued": fmt.Sprintf("%d", input.Issued),
					"failed": fmt.Sprintf("%d", input.Failed),
				},
			},
		},
	}
}
