package thoughts_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/thoughts"
	"github.com/aretw0/thoughts/pkg/core"
)

// Example_basic submits two notes and reads the list back, newest first.
func Example_basic() {
	ctx := context.Background()

	app, err := thoughts.New(ctx, "",
		thoughts.WithAdapter(thoughts.AdapterMemory),
		thoughts.WithStrategy(core.StrategyPull),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	if err := app.Start(ctx); err != nil {
		log.Fatal(err)
	}

	for _, text := range []string{"hello", "world"} {
		app.Input.SetDraft(text)
		app.Input.Submit(ctx)
		app.Wait()
	}
	app.Wait()

	for _, note := range app.List.View().Notes {
		fmt.Println(note.Text)
	}
	// Output:
	// world
	// hello
}
