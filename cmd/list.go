package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"wallpaperd/services"
	"wallpaperd/types"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const banner = `
__      __   _ _                            _
\ \    / /_ _| | |_ __  __ _ _ __  ___ _ _ __| |
 \ \/\/ / _' | | | '_ \/ _' | '_ \/ -_) '_/ _' |
  \_/\_/\__,_|_|_| .__/\__,_| .__/\___|_| \__,_|
                 |_|        |_|
`

func printBanner() {
	color.New(color.FgCyan).Print(banner)
}

var stateColors = map[types.StateKind]*color.Color{
	types.StateInitial:       color.New(color.FgWhite),
	types.StateLoading:       color.New(color.FgBlue),
	types.StateNeedsDownload: color.New(color.FgYellow),
	types.StateDownloading:   color.New(color.FgMagenta),
	types.StateSuccess:       color.New(color.FgGreen),
	types.StateFailure:       color.New(color.FgRed),
}

func listCmd() *cobra.Command {
	var resolve bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pregenerated and recent wallpapers with their state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := NewApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Menu.Load(ctx); err != nil {
				return err
			}

			items := app.Menu.Items()
			if resolve {
				// Only local files are resolved; nothing is downloaded
				for _, item := range items {
					if item.State().Kind() == types.StateLoading {
						app.Machine.OnAppear(item)
					}
				}
				app.Machine.Wait()
			}

			fmt.Println("Pregenerated wallpapers:")
			for _, item := range items {
				printItem(item)
			}

			fmt.Println()
			fmt.Println("Recent wallpapers:")
			for _, item := range app.Menu.Recent() {
				printItem(item)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&resolve, "resolve", false, "Resolve wallpapers whose files are on disk")
	return cmd
}

func printItem(item *services.Item) {
	state := item.State()
	kind := fmt.Sprintf("%-13s", state.Kind())
	live := ""
	if item.Asset().IsLivePhoto {
		live = " (live)"
	}

	fmt.Printf("  %-24s %s%s", item.Name(), stateColors[state.Kind()].Sprint(kind), live)
	if f, ok := state.(types.Failure); ok {
		fmt.Printf("  %v", f.Error())
	}
	fmt.Println()
}
