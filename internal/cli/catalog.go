package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/orionstore/orion/internal/appstate"
	"github.com/orionstore/orion/internal/catalog"
	"github.com/orionstore/orion/internal/util/iconcache"
)

type listOptions struct {
	platform string
	category string
	query    string
	offline  bool
	updates  bool
}

func newListCmd(g *globalOptions) *cobra.Command {
	opts := &listOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the apps in the catalog",
		Long: `List the apps in the catalog with their resolved version and download size.

The catalog is refreshed first unless --offline is given. The refresh reuses
cached release lists that are still fresh, so it is cheap to run repeatedly.

Examples:
  orion list
  orion list --platform pc
  orion list --category privacy --query browser
  orion list --updates`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, g, opts)
		},
	}
	cmd.Flags().StringVar(&opts.platform, "platform", "", "filter by platform (android, pc)")
	cmd.Flags().StringVar(&opts.category, "category", "", "filter by category")
	cmd.Flags().StringVar(&opts.query, "query", "", "filter by name or description")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "use the persisted catalog without refreshing")
	cmd.Flags().BoolVar(&opts.updates, "updates", false, "only list downloaded apps with a newer version")
	return cmd
}

func runList(cmd *cobra.Command, g *globalOptions, opts *listOptions) error {
	var q catalog.Query
	if opts.platform != "" {
		p, ok := catalog.LookupPlatform(opts.platform)
		if !ok {
			return fmt.Errorf("unknown platform %q", opts.platform)
		}
		q.Platform = p
	}
	if opts.category != "" {
		c, ok := catalog.LookupCategory(opts.category)
		if !ok {
			return fmt.Errorf("unknown category %q", opts.category)
		}
		q.Category = c
	}
	q.Text = opts.query

	s, err := openSession(cmd, g, nil)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !opts.offline {
		if _, err := s.sync(cmd.Context(), out, false); err != nil {
			return err
		}
	}

	apps := catalog.Filter(s.syncer.Apps(), q)
	if opts.updates {
		apps = filterUpdates(s.app.Registry, apps)
	}
	if len(apps) == 0 {
		fmt.Fprintln(out, "No apps found.")
		return nil
	}

	table := NewTable("ID", "NAME", "VERSION", "SIZE", "STATUS", "DESCRIPTION")
	for _, app := range apps {
		table.AddRow(app.ID, app.Name, app.Version, app.Size, installStatus(s.app.Registry, app), app.Description)
	}
	table.FitColumn(5, terminalWidth(out), 20)
	_, err = table.WriteTo(out)
	return err
}

func filterUpdates(reg *appstate.Registry, apps []catalog.AppDescriptor) []catalog.AppDescriptor {
	out := apps[:0:0]
	for _, app := range apps {
		if reg.HasUpdate(app) {
			out = append(out, app)
		}
	}
	return out
}

// installStatus describes the recorded download of app.
func installStatus(reg *appstate.Registry, app catalog.AppDescriptor) string {
	if _, ok := reg.Installed(app.ID); !ok {
		return ""
	}
	if reg.HasUpdate(app) {
		return "update available"
	}
	return "installed"
}

func newShowCmd(g *globalOptions) *cobra.Command {
	var icon bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the details of an app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, g, nil)
			if err != nil {
				return err
			}
			app, err := s.find(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printApp(out, s.app.Registry, app)

			if icon && app.Icon != "" {
				ic, err := iconcache.Fetch(cmd.Context(), app.Icon, iconcache.Options{})
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-12s %s (%s, %dx%d)\n", "Icon file:", ic.Path, ic.Format, ic.Width, ic.Height)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&icon, "icon", false, "download the app icon into the local cache")
	return cmd
}

func printApp(w io.Writer, reg *appstate.Registry, app catalog.AppDescriptor) {
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-12s %s\n", label+":", value)
		}
	}

	field("Name", app.Name)
	field("ID", app.ID)
	field("Author", app.Author)
	field("Category", string(app.Category))
	field("Platform", string(app.Platform))
	field("Version", app.Version)
	field("Size", app.Size)
	if v, ok := reg.Installed(app.ID); ok {
		field("Installed", v)
	}
	field("Status", installStatus(reg, app))
	field("Repository", app.Repository())
	field("Package", app.PackageName)
	field("Download", app.DownloadURL)

	if len(app.Variants) > 0 {
		fmt.Fprintln(w, "Variants:")
		for _, v := range app.Variants {
			fmt.Fprintf(w, "  %-10s %s\n", v.Arch, v.URL)
		}
	}
	if app.Description != "" {
		fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(app.Description))
	}
}

func newInstalledCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "installed",
		Short: "List the apps downloaded through Orion",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd, g, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			versions := s.app.Registry.All()
			if len(versions) == 0 {
				fmt.Fprintln(out, "No apps downloaded yet.")
				return nil
			}

			ids := make([]string, 0, len(versions))
			for id := range versions {
				ids = append(ids, id)
			}
			sort.Strings(ids)

			apps := s.syncer.Apps()
			table := NewTable("ID", "NAME", "DOWNLOADED", "LATEST", "STATUS")
			for _, id := range ids {
				app, ok := catalog.Find(apps, id)
				if !ok {
					table.AddRow(id, "", versions[id], "", "not in catalog")
					continue
				}
				table.AddRow(id, app.Name, versions[id], app.LatestVersion, installStatus(s.app.Registry, app))
			}
			_, err = table.WriteTo(out)
			return err
		},
	}
}
