package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"staffsync/internal/app"
	"staffsync/internal/config"
	"staffsync/internal/model"
	"staffsync/internal/staff"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a StaffApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "list", "sync").
func newApp(cmd *cobra.Command, operation string) (*app.StaffApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if offline, _ := cmd.Flags().GetBool("offline"); offline {
		cfg.ForceOffline()
	}

	var console io.Writer
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		console = os.Stderr
	}

	a, err := app.NewStaffApp(cmd.Context(), cfg, operation, console)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts on the terminal without echo, or reads one line
// when stdin is not a terminal.
func readPassphrase(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

func stateLabel(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

func printRecord(r *model.Record) {
	fmt.Printf("ID:          %s\n", r.ID)
	fmt.Printf("NIDN:        %s\n", r.NIDN)
	fmt.Printf("Name:        %s\n", r.Name)
	fmt.Printf("Degree:      %s\n", r.Degree)
	if r.ScopusID != "" {
		fmt.Printf("Scopus ID:   %s\n", r.ScopusID)
	}
	fmt.Printf("Position:    %s\n", r.FunctionalPosition)
	fmt.Printf("Rank:        %s\n", r.Rank)
	fmt.Printf("Education:   %s\n", r.LastEducation)
	fmt.Printf("Serdos:      %s\n", r.SerdosStatus)
	if !r.CreatedAt.IsZero() {
		fmt.Printf("Created:     %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	if model.IsLocalID(r.ID) {
		fmt.Println("(not yet synchronized)")
	}
}

// record field flags shared by add and edit
var recordFlags = []struct {
	name  string
	usage string
	set   func(in *model.RecordInput, v string)
}{
	{"nidn", "National lecturer id (NIDN)", func(in *model.RecordInput, v string) { in.NIDN = v }},
	{"name", "Full name", func(in *model.RecordInput, v string) { in.Name = v }},
	{"degree", "Academic degree", func(in *model.RecordInput, v string) { in.Degree = v }},
	{"scopus", "Scopus author id", func(in *model.RecordInput, v string) { in.ScopusID = v }},
	{"position", "Functional position (" + strings.Join(staff.FunctionalPositions, ", ") + ")", func(in *model.RecordInput, v string) { in.FunctionalPosition = v }},
	{"rank", "Civil-service rank", func(in *model.RecordInput, v string) { in.Rank = v }},
	{"education", "Last education", func(in *model.RecordInput, v string) { in.LastEducation = v }},
	{"serdos", "Certification status (" + strings.Join(staff.SerdosStatuses, ", ") + ")", func(in *model.RecordInput, v string) { in.SerdosStatus = v }},
}

func addRecordFlags(cmd *cobra.Command) {
	for _, f := range recordFlags {
		cmd.Flags().String(f.name, "", f.usage)
	}
}

// applyRecordFlags copies every flag the user set into in.
func applyRecordFlags(cmd *cobra.Command, in *model.RecordInput) {
	for _, f := range recordFlags {
		if cmd.Flags().Changed(f.name) {
			v, _ := cmd.Flags().GetString(f.name)
			f.set(in, v)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:          "staffsync",
	Short:        "Offline-first lecturer records",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := app.NewDefaultConfig(defaults["base_dir"])
		if url, _ := cmd.Flags().GetString("url"); url != "" {
			cfg.Remote.URL = url
		}
		if key, _ := cmd.Flags().GetString("api-key"); key != "" {
			cfg.Remote.APIKey = key
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Client ID: %s\n", cfg.ClientID)
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		if cfg.Remote.URL == "" {
			fmt.Println("Set remote.url before going online.")
		}
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Client ID:    %s\n", cfg.ClientID)
		fmt.Printf("Base Dir:     %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Remote:       %s %s (table %s)\n", cfg.Remote.Type, cfg.Remote.URL, cfg.Remote.TableName())
		fmt.Printf("Storage:      %s %s\n", cfg.Storage.Type, cfg.Storage.Dir)
		fmt.Printf("Connectivity: %s\n", cfg.Connectivity.Mode)
		return nil
	},
}

// encryption command
var encryptionCmd = &cobra.Command{
	Use:   "encryption",
	Short: "Manage export encryption keys",
}

var encryptionInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the export key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "encryption-init")
		if err != nil {
			return err
		}
		defer a.Close()

		if a.EncryptionConfigured() {
			return fmt.Errorf("encryption keys already exist")
		}

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Repeat passphrase: ")
		if err != nil {
			return err
		}
		if pass != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.SetupEncryption(pass); err != nil {
			return err
		}
		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List lecturers",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := model.DefaultQuery()
		q.Search, _ = cmd.Flags().GetString("search")
		q.Position, _ = cmd.Flags().GetString("position")
		q.Serdos, _ = cmd.Flags().GetString("serdos")
		q.SortBy, _ = cmd.Flags().GetString("sort")
		order, _ := cmd.Flags().GetString("order")
		switch order {
		case "asc":
			q.Desc = false
		case "desc":
			q.Desc = true
		default:
			return fmt.Errorf("invalid order %q: use asc or desc", order)
		}

		a, err := newApp(cmd, "list")
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.List(cmd.Context(), q)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No lecturers found.")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"ID", "NIDN", "Name", "Position", "Rank", "Serdos"})
		for _, r := range records {
			id := r.ID
			if model.IsLocalID(id) {
				id += " *"
			}
			tw.AppendRow(table.Row{id, r.NIDN, r.Name + ", " + r.Degree, r.FunctionalPosition, r.Rank, r.SerdosStatus})
		}
		tw.Render()

		if !a.Online() {
			fmt.Println("(offline: showing cached records)")
		}
		return nil
	},
}

// show command
var showCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show one lecturer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "show")
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.Show(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printRecord(rec)
		return nil
	},
}

// add command
var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a lecturer",
	RunE: func(cmd *cobra.Command, args []string) error {
		var in model.RecordInput
		applyRecordFlags(cmd, &in)

		a, err := newApp(cmd, "add")
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.Add(cmd.Context(), in)
		if err != nil {
			return err
		}

		fmt.Printf("Added %s (%s)\n", rec.Name, rec.ID)
		if model.IsLocalID(rec.ID) {
			fmt.Println("Queued for sync.")
		}
		return nil
	},
}

// edit command
var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Edit a lecturer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "edit")
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.Edit(cmd.Context(), args[0], func(in *model.RecordInput) {
			applyRecordFlags(cmd, in)
		})
		if err != nil {
			return err
		}

		fmt.Printf("Updated %s (%s)\n", rec.Name, rec.ID)
		if !a.Online() {
			fmt.Println("Queued for sync.")
		}
		return nil
	},
}

// rm command
var rmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a lecturer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "rm")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Remove(cmd.Context(), args[0]); err != nil {
			return err
		}

		fmt.Printf("Deleted %s\n", args[0])
		if !a.Online() {
			fmt.Println("Queued for sync.")
		}
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replay pending changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "sync")
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Sync(cmd.Context())
		var ferr *staff.FlushError
		switch {
		case errors.As(err, &ferr):
			return fmt.Errorf("sync stopped at change %d (%s %s), nothing was discarded: %w",
				ferr.Index+1, ferr.Action.Kind, ferr.Action.RecordID, ferr.Err)
		case res != nil && err != nil:
			fmt.Printf("Replayed %d change(s)\n", res.Replayed)
			return err
		case err != nil:
			return err
		}

		fmt.Printf("Replayed %d change(s)\n", res.Replayed)
		for local, server := range res.Remapped {
			fmt.Printf("  %s -> %s\n", local, server)
		}
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View synchronization status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "status")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Status()
		if err != nil {
			return err
		}

		fmt.Printf("Connectivity: %s\n", stateLabel(st.Online))
		fmt.Printf("Pending:      %d\n", st.Pending)
		fmt.Printf("Cached:       %d\n", st.Records)
		if !st.LastSync.IsZero() {
			fmt.Printf("Last sync:    %s\n", st.LastSync.Local().Format("2006-01-02 15:04:05"))
		}
		if st.LastError != "" {
			fmt.Printf("Last error:   %s\n", st.LastError)
		}
		return nil
	},
}

// pending command
var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List changes waiting to be synchronized",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "pending")
		if err != nil {
			return err
		}
		defer a.Close()

		actions, err := a.Pending()
		if err != nil {
			return err
		}

		if len(actions) == 0 {
			fmt.Println("Nothing pending.")
			return nil
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.AppendHeader(table.Row{"#", "Action", "Record", "Name", "Queued"})
		for i, p := range actions {
			name := ""
			if p.Data != nil {
				name = p.Data.Name
			}
			tw.AppendRow(table.Row{i + 1, p.Kind, p.RecordID, name, p.Timestamp.Local().Format("2006-01-02 15:04:05")})
		}
		tw.Render()
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Write an encrypted copy of cached records and pending changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "export")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.OpenFile(args[0], os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}

		b, err := a.Export(f)
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing export file: %w", cerr)
		}
		if err != nil {
			os.Remove(args[0])
			return err
		}

		fmt.Printf("Exported %d record(s) and %d pending change(s) to %s\n", len(b.Records), len(b.Pending), args[0])
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace local state with an exported bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "import")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening bundle: %w", err)
		}
		defer f.Close()

		pass, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}

		b, err := a.Import(f, pass)
		if err != nil {
			return err
		}

		fmt.Printf("Imported %d record(s) and %d pending change(s) from client %s\n", len(b.Records), len(b.Pending), b.ClientID)
		return nil
	},
}

// watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stay running and sync whenever connectivity returns",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmd.SetContext(ctx)

		a, err := newApp(cmd, "watch")
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Printf("Watching (%s). Press Ctrl-C to stop.\n", stateLabel(a.Online()))
		return a.Watch(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Mirror log output to stderr")
	rootCmd.PersistentFlags().Bool("offline", false, "Treat the remote as unreachable for this command")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("url", "", "PostgREST base URL")
	configInitCmd.Flags().String("api-key", "", "PostgREST API key")
	configCmd.AddCommand(configListCmd)

	// encryption subcommands
	encryptionCmd.AddCommand(encryptionInitCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(encryptionCmd)
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringP("search", "s", "", "Match name or NIDN")
	listCmd.Flags().String("position", "", "Filter by functional position")
	listCmd.Flags().String("serdos", "", "Filter by certification status")
	listCmd.Flags().String("sort", model.SortByCreatedAt, "Sort by name, nidn or created_at")
	listCmd.Flags().String("order", "desc", "Sort order: asc or desc")
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(addCmd)
	addRecordFlags(addCmd)
	rootCmd.AddCommand(editCmd)
	addRecordFlags(editCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(watchCmd)
}
