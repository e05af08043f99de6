package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonypilatti/linkedinbot/internal/config"
	"github.com/jonypilatti/linkedinbot/internal/llm"
)

type sessionSnapshot struct {
	State        string `json:"state"`
	Mode         string `json:"mode"`
	Profile      string `json:"profile"`
	Applications int    `json:"applications_today"`
	Messages     int    `json:"messages_today"`
	Limits       struct {
		MaxApplicationsPerDay int
		MaxMessagesPerDay     int
	} `json:"limits"`
}

func printSnapshot(snap sessionSnapshot) {
	printStatus("State", "%s", snap.State)
	printStatus("Mode", "%s", snap.Mode)
	if snap.Profile != "" {
		printStatus("Profile", "%s", snap.Profile)
	}
	printStatus("Applications", "%d/%d today", snap.Applications, snap.Limits.MaxApplicationsPerDay)
	printStatus("Messages", "%d/%d today", snap.Messages, snap.Limits.MaxMessagesPerDay)
}

// sessionAction posts to a session endpoint and prints the resulting state.
func sessionAction(cmd *cobra.Command, path, success string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	var snap sessionSnapshot
	if err := client.postJSON(cmd.Context(), path, nil, &snap); err != nil {
		return err
	}

	printSuccess("%s", success)
	printStatus("State", "%s", snap.State)
	return nil
}

// --- login ---

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate the session",
	Long: `Authenticate the session.

With --code, exchange an OAuth authorization code for a fresh credential.
Without --code, reuse the stored credential from a previous login.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, _ := cmd.Flags().GetString("code")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var snap sessionSnapshot
		if err := client.postJSON(cmd.Context(), "/login", map[string]string{"code": code}, &snap); err != nil {
			return err
		}

		printSuccess("Logged in as %s", snap.Profile)
		printSnapshot(snap)
		return nil
	},
}

func init() {
	loginCmd.Flags().String("code", "", "OAuth authorization code (omit to reuse stored credential)")
	applyCmd.Flags().String("location", "", "restrict the search to a location")
	applyCmd.Flags().Int("max-jobs", 0, "cap the number of postings considered (0 = quota only)")
	applyCmd.Flags().Bool("easy-apply", false, "only consider easy-apply postings")
}

// --- batches ---

var contactCmd = &cobra.Command{
	Use:   "contact",
	Short: "Start a batch messaging recruiter connections",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var result map[string]string
		if err := client.postJSON(cmd.Context(), "/batches/contact-recruiters", nil, &result); err != nil {
			return err
		}

		printSuccess("Recruiter outreach batch started")
		printStep("Track progress with: linkedinbot batch")
		return nil
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply <keyword>...",
	Short: "Start a batch applying to matching job postings",
	Long: `Start a batch applying to matching job postings.

Each argument is one search keyword; postings are scored by how many of the
keywords appear in their description. Quote multi-word keywords:

  linkedinbot apply golang "backend engineer" --location Remote`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		location, _ := cmd.Flags().GetString("location")
		maxJobs, _ := cmd.Flags().GetInt("max-jobs")
		easyApply, _ := cmd.Flags().GetBool("easy-apply")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]any{
			"keywords":        args,
			"location":        location,
			"max_jobs":        maxJobs,
			"easy_apply_only": easyApply,
		}
		var result map[string]string
		if err := client.postJSON(cmd.Context(), "/batches/apply", body, &result); err != nil {
			return err
		}

		printSuccess("Job application batch started for %s", strings.Join(args, ", "))
		printStep("Track progress with: linkedinbot batch")
		return nil
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Show the current or last batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var snap struct {
			Running bool   `json:"running"`
			Kind    string `json:"kind"`
			Error   string `json:"error"`
			Last    *struct {
				Kind         string `json:"kind"`
				Processed    int    `json:"processed"`
				Succeeded    int    `json:"succeeded"`
				Failed       int    `json:"failed"`
				Skipped      int    `json:"skipped"`
				QuotaReached bool   `json:"quota_reached"`
			} `json:"last"`
		}
		if err := client.getJSON(cmd.Context(), "/batches/last", &snap); err != nil {
			return err
		}

		if snap.Running {
			printStatus("Batch", "%s (running)", snap.Kind)
			return nil
		}
		if snap.Last == nil {
			fmt.Println("No batch has run yet.")
			return nil
		}

		printStatus("Batch", "%s (finished)", snap.Last.Kind)
		printStatus("Processed", "%d", snap.Last.Processed)
		printStatus("Succeeded", "%d", snap.Last.Succeeded)
		printStatus("Failed", "%d", snap.Last.Failed)
		printStatus("Skipped", "%d", snap.Last.Skipped)
		if snap.Last.QuotaReached {
			printWarning("Daily quota reached during this batch")
		}
		if snap.Error != "" {
			printError("%s", snap.Error)
		}
		return nil
	},
}

// --- session control ---

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the session (in-flight batches block at the next action)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionAction(cmd, "/session/pause", "Session paused")
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionAction(cmd, "/session/resume", "Session resumed")
	},
}

var captchaCmd = &cobra.Command{
	Use:   "captcha",
	Short: "Manage security challenge blocks",
}

var captchaClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Mark the security challenge as manually resolved",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionAction(cmd, "/session/captcha/clear", "Challenge cleared, session active")
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the in-flight batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionAction(cmd, "/session/cancel", "Cancellation requested")
	},
}

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Close the session permanently",
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionAction(cmd, "/session/close", "Session closed")
	},
}

func init() {
	captchaCmd.AddCommand(captchaClearCmd)
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the audit log",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent actions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		kind, _ := cmd.Flags().GetString("kind")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/history?limit=%d", limit)
		if kind != "" {
			path += "&kind=" + kind
		}

		var result struct {
			Actions []struct {
				ID        string `json:"id"`
				CreatedAt string `json:"created_at"`
				Kind      string `json:"kind"`
				Details   string `json:"details"`
				Success   bool   `json:"success"`
			} `json:"actions"`
		}
		if err := client.getJSON(cmd.Context(), path, &result); err != nil {
			return err
		}

		if len(result.Actions) == 0 {
			fmt.Println("No actions recorded.")
			return nil
		}

		for _, a := range result.Actions {
			details := a.Details
			if len(details) > 100 {
				details = details[:100] + "..."
			}
			fmt.Printf("%s  %s  %-10s  %s %s\n",
				paint(ansiCyan, a.ID[:8]), a.CreatedAt, a.Kind, outcomeMark(a.Success), details)
		}
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the audit log as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.request(cmd.Context(), "GET", "/history/export", nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			payload, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, string(payload))
		}

		var writer *os.File
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			writer = f
		} else {
			writer = os.Stdout
		}

		if _, err := io.Copy(writer, resp.Body); err != nil {
			return err
		}
		if output != "" {
			printSuccess("History exported to %s", output)
		}
		return nil
	},
}

func init() {
	historyListCmd.Flags().Int("limit", 20, "maximum number of actions to list")
	historyListCmd.Flags().String("kind", "", "filter by action kind (login, search, apply, message, ...)")
	historyExportCmd.Flags().String("output", "", "output file path (default: stdout)")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyExportCmd)
}

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the candidate profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the candidate profile as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var profile any
		if err := client.getJSON(cmd.Context(), "/profile", &profile); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a profile field",
	Long: `Set a profile field.

Keys: name.first, name.last, headline, summary, resume_id, skills.
Skills take a comma-separated list:

  linkedinbot profile set skills "Go, Kubernetes, PostgreSQL"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, raw := args[0], args[1]

		var value any = raw
		if key == "skills" {
			var skills []string
			for _, s := range strings.Split(raw, ",") {
				if s = strings.TrimSpace(s); s != "" {
					skills = append(skills, s)
				}
			}
			value = skills
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var result map[string]string
		if err := client.putJSON(cmd.Context(), "/profile", map[string]any{"key": key, "value": value}, &result); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, raw)
		return nil
	},
}

func init() {
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
}

// --- score ---

var scoreCmd = &cobra.Command{
	Use:   "score [description]",
	Short: "Score a job description against the configured skills",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		var description string
		switch {
		case file != "":
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			description = string(data)
		case len(args) > 0:
			description = strings.Join(args, " ")
		default:
			return fmt.Errorf("a description argument or --file is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var result struct {
			Score float64 `json:"score"`
		}
		if err := client.postJSON(cmd.Context(), "/compatibility", map[string]string{"description": description}, &result); err != nil {
			return err
		}

		printStatus("Score", "%.2f", result.Score)
		return nil
	},
}

func init() {
	scoreCmd.Flags().String("file", "", "read the job description from a file")
}

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat <prompt>",
	Short: "Send a free-form prompt to the local language model",
	Long: `Send a free-form prompt to the local language model.

Talks to LM Studio directly, without going through the daemon. Useful for
trying out message phrasing before starting a batch.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		client := llm.New(cfg.LMStudio.BaseURL, cfg.LMStudio.Model)
		if !client.IsRunning(cmd.Context()) {
			return fmt.Errorf("LM Studio not reachable at %s", cfg.LMStudio.BaseURL)
		}

		reply, err := client.Chat(cmd.Context(), []llm.Message{
			{Role: "user", Content: strings.Join(args, " ")},
		})
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", paint(ansiBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
