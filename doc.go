// Package thoughts is the composition root of a small note-taking engine.
//
// A draft is submitted as a short note, the notes are shown as a live
// newest-first list, and any note can be deleted by ID. Persistence,
// ordering and fan-out belong to a store; this module is the glue between
// a frontend and that store.
//
// Components (see pkg/core):
//
//   - InputController owns the draft and turns a submission into exactly one
//     create request, clearing the draft without waiting for the store.
//   - ListViewModel keeps the list either by subscribing to the store's change
//     feed (push) or by re-querying after every mutation (pull).
//   - Gate turns connectivity readings into an online flag that disables
//     submission and suppresses fetching while offline.
//
// Stores (see pkg/adapters): memory, fs (Markdown files watched with
// fsnotify), postgres (LISTEN/NOTIFY) and remote (the HTTP API of pkg/server).
//
// Usage:
//
//	app, err := thoughts.New(ctx, "./notes",
//		thoughts.WithAdapter(thoughts.AdapterFS),
//		thoughts.WithLogger(logger),
//	)
//	if err != nil {
//		return err
//	}
//	defer app.Close()
//
//	if err := app.Start(ctx); err != nil {
//		return err
//	}
//
//	app.Input.SetDraft("hello")
//	app.Input.Submit(ctx)
package thoughts
