package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	textinput "github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"omnitui/internal/config"
	"omnitui/internal/launchd"
	"omnitui/internal/models"
)

// Deps are the side effects of the wizard, injected by the CLI.
type Deps struct {
	// Login validates apiKey against apiURL and stores it.
	Login func(ctx context.Context, apiURL, apiKey string) (*models.Viewer, error)
	// ConfigExists reports whether a config file is already present.
	ConfigExists bool
	// WebURL is where API keys are created.
	WebURL string
}

// Run executes the interactive login flow:
// 1) greet
// 2) keep or replace an existing config
// 3) ask for the API endpoint and key, validating the key
// 4) ask for the offline sync interval
// 5) write config and install the sync agent (macOS)
func Run(ctx context.Context, deps Deps) error {
	wiz := newWizardModel(ctx, deps)
	res, err := tea.NewProgram(wiz).Run()
	if err != nil {
		return err
	}
	wm, ok := res.(*wizardModel)
	if !ok || wm.cancelled {
		return errors.New("setup cancelled")
	}

	if wm.override {
		if deps.ConfigExists {
			if p, err := config.Path(); err == nil {
				_ = config.BackupFile(p)
			}
		}
		path, err := config.WriteConfig(config.UserConfig{
			APIURL:      wm.apiURL,
			WebURL:      deps.WebURL,
			IntervalMin: wm.interval,
		})
		if err != nil {
			return err
		}
		fmt.Printf("\nConfig written to %s\n", path)
	}

	if runtime.GOOS == "darwin" {
		fmt.Println("\nInstalling launchd agent to sync your library on a schedule…")
		exe, _ := os.Executable()
		home, _ := os.UserHomeDir()
		opt := launchd.InstallOptions{
			Label:           launchd.DefaultLabel,
			IntervalMinutes: wm.interval,
			ProgramPath:     exe,
			ProgramArgs:     []string{"sync"},
			LogPath:         filepath.Join(home, "Library", "Logs", "omnitui", "sync.launchd.log"),
		}
		if _, err := launchd.Install(opt); err != nil {
			fmt.Printf("launchd install failed: %v\n", err)
		} else {
			fmt.Println("launchd agent installed and loaded.")
		}
	} else {
		fmt.Println("\nNote: Automatic scheduling is only implemented for macOS (launchd).\nUse cron or a systemd timer to run 'omnitui sync' periodically.")
	}

	maybeConfigureMCP()

	fmt.Printf("\nLogged in as %s.\n", wm.viewer.Username)
	fmt.Println("- Run 'omnitui' to browse your library")
	fmt.Println("- Run 'omnitui server' to expose your library to your LLM via MCP")
	return nil
}

// inputField wraps a text input with focus tracking.
type inputField struct {
	input   textinput.Model
	focused bool
}

func newInputField(placeholder string, echo textinput.EchoMode) *inputField {
	in := textinput.New()
	in.Placeholder = placeholder
	in.EchoMode = echo
	if echo == textinput.EchoPassword {
		in.EchoCharacter = '•'
	}
	return &inputField{input: in}
}

func (f *inputField) focus() tea.Cmd {
	f.focused = true
	return f.input.Focus()
}

func (f *inputField) blur() {
	f.focused = false
	f.input.Blur()
}

func (f *inputField) value() string { return strings.TrimSpace(f.input.Value()) }

func (f *inputField) setValue(v string) { f.input.SetValue(v) }

func (f *inputField) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return cmd
}

type wizardStep int

const (
	stepIntro wizardStep = iota
	stepConfigChoice
	stepServer
	stepKey
	stepValidating
	stepInterval
	stepSummary
	stepDone
)

type wizardModel struct {
	ctx  context.Context
	deps Deps

	step      wizardStep
	override  bool
	cancelled bool

	serverInput   *inputField
	keyInput      *inputField
	intervalInput *inputField

	apiURL   string
	viewer   *models.Viewer
	interval int

	errMsg string
}

func newWizardModel(ctx context.Context, deps Deps) *wizardModel {
	server := newInputField(config.DefaultAPIURL, textinput.EchoNormal)
	key := newInputField("API key", textinput.EchoPassword)
	interval := newInputField("30", textinput.EchoNormal)
	return &wizardModel{
		ctx:           ctx,
		deps:          deps,
		step:          stepIntro,
		serverInput:   server,
		keyInput:      key,
		intervalInput: interval,
		interval:      30,
	}
}

func (m *wizardModel) Init() tea.Cmd { return nil }

type loginDoneMsg struct {
	viewer *models.Viewer
	err    error
}

func (m *wizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (msg.Type == tea.KeyEsc && m.step != stepValidating) {
			m.cancelled = true
			return m, tea.Quit
		}
		switch m.step {
		case stepIntro:
			if msg.Type == tea.KeyEnter {
				if m.deps.ConfigExists {
					m.step = stepConfigChoice
					return m, nil
				}
				m.override = true
				m.step = stepServer
				return m, m.serverInput.focus()
			}
		case stepConfigChoice:
			if msg.Type == tea.KeyRunes {
				switch strings.ToLower(string(msg.Runes)) {
				case "o":
					m.override = true
					m.step = stepServer
					return m, m.serverInput.focus()
				case "k":
					m.override = false
					m.step = stepKey
					return m, m.keyInput.focus()
				}
			}
		case stepServer:
			if msg.Type == tea.KeyEnter {
				m.apiURL = m.serverInput.value()
				if m.apiURL == "" {
					m.apiURL = config.DefaultAPIURL
				}
				if !strings.HasPrefix(m.apiURL, "http://") && !strings.HasPrefix(m.apiURL, "https://") {
					m.errMsg = "The API URL must start with http:// or https://."
					return m, nil
				}
				m.errMsg = ""
				m.serverInput.blur()
				m.step = stepKey
				return m, m.keyInput.focus()
			}
			return m, m.serverInput.update(msg)
		case stepKey:
			if msg.Type == tea.KeyCtrlO && m.deps.WebURL != "" {
				_ = OpenBrowser(strings.TrimRight(m.deps.WebURL, "/") + "/settings/api")
				return m, nil
			}
			if msg.Type == tea.KeyEnter {
				if m.keyInput.value() == "" {
					m.errMsg = "Please paste an API key."
					return m, nil
				}
				m.errMsg = ""
				m.step = stepValidating
				return m, m.startLogin()
			}
			return m, m.keyInput.update(msg)
		case stepInterval:
			if msg.Type == tea.KeyEnter {
				v := m.intervalInput.value()
				if v == "" {
					m.interval = 30
				} else if n, err := parsePositiveInt(v); err == nil {
					m.interval = n
				} else {
					m.errMsg = "Please enter a positive integer (minutes)."
					return m, nil
				}
				m.errMsg = ""
				m.step = stepSummary
				return m, nil
			}
			return m, m.intervalInput.update(msg)
		case stepSummary:
			if msg.Type == tea.KeyEnter {
				m.step = stepDone
				return m, tea.Quit
			}
		}
	case loginDoneMsg:
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("Login failed: %v", msg.err)
			m.step = stepKey
			m.keyInput.setValue("")
			return m, m.keyInput.focus()
		}
		m.viewer = msg.viewer
		m.keyInput.blur()
		m.step = stepInterval
		return m, m.intervalInput.focus()
	}
	return m, nil
}

func (m *wizardModel) startLogin() tea.Cmd {
	apiURL := m.apiURL
	if apiURL == "" {
		apiURL = config.DefaultAPIURL
	}
	key := m.keyInput.value()
	return func() tea.Msg {
		if m.deps.Login == nil {
			return loginDoneMsg{err: errors.New("login is not available")}
		}
		v, err := m.deps.Login(m.ctx, apiURL, key)
		return loginDoneMsg{viewer: v, err: err}
	}
}

func (m *wizardModel) View() string {
	b := &strings.Builder{}
	switch m.step {
	case stepIntro:
		fmt.Fprintln(b, "Welcome to omnitui setup!")
		fmt.Fprintln(b, "This wizard logs you in and schedules offline sync of your library.")
		fmt.Fprintln(b, "\nPress Enter to begin · Esc to quit")
	case stepConfigChoice:
		fmt.Fprintln(b, "Found an existing config.")
		fmt.Fprintln(b, "Override it (will create a .bak) or keep it?")
		fmt.Fprintln(b, "[o] Override    [k] Keep existing")
	case stepServer:
		fmt.Fprintln(b, "Step 1 – API endpoint")
		fmt.Fprintln(b, "Press Enter to use the hosted service, or paste the GraphQL URL of a self-hosted server.")
		fmt.Fprintln(b, m.serverInput.input.View())
	case stepKey:
		fmt.Fprintln(b, "Step 2 – API key")
		fmt.Fprintln(b, "Create a key in the web app under Settings › API Keys (Ctrl+O opens it).")
		fmt.Fprintln(b, m.keyInput.input.View())
	case stepValidating:
		fmt.Fprintln(b, "Checking your API key…")
	case stepInterval:
		fmt.Fprintf(b, "Hello %s!\n\n", m.viewer.Name)
		fmt.Fprintln(b, "Step 3 – Offline sync")
		fmt.Fprintln(b, "How often should your library be synced? Minutes [30]:")
		fmt.Fprintln(b, m.intervalInput.input.View())
	case stepSummary:
		fmt.Fprintln(b, "Summary")
		fmt.Fprintf(b, "Account: %s (%s)\n", m.viewer.Name, m.viewer.Username)
		fmt.Fprintf(b, "Sync interval: %d minutes\n", m.interval)
		if m.override {
			fmt.Fprintln(b, "\nThe configuration file will be written to ~/.config/omnitui/config.yaml.")
		} else {
			fmt.Fprintln(b, "\nKeeping existing config. Only the sync schedule will be installed/updated.")
		}
		fmt.Fprintln(b, "\nPress Enter to finish · Esc to cancel")
	case stepDone:
		fmt.Fprintln(b, "Finishing…")
	}
	if m.errMsg != "" {
		fmt.Fprintf(b, "\n%s\n", m.errMsg)
	}
	return b.String()
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return n, nil
}

func maybeConfigureMCP() {
	exe, _ := os.Executable()
	if _, err := exec.LookPath("claude"); err == nil {
		if askYesNo("\nDetected Claude CLI. Add the omnitui MCP server via 'claude mcp add'? [y/N]: ") {
			if err := runClaudeCLIAdd(exe); err != nil {
				fmt.Printf("Failed to add MCP via Claude CLI: %v\n", err)
			}
		}
	}
	home, _ := os.UserHomeDir()
	codexPath := filepath.Join(home, ".codex", "config.toml")
	b, err := os.ReadFile(codexPath)
	if err != nil || strings.Contains(string(b), "[mcp_servers.omnitui]") {
		return
	}
	if askYesNo("\nDetected ~/.codex/config.toml. Add the omnitui MCP server there? [y/N]: ") {
		_ = config.BackupFile(codexPath)
		if err := appendTomlMCP(codexPath, exe); err != nil {
			fmt.Printf("Failed to update %s: %v\n", codexPath, err)
			return
		}
		fmt.Println("Added MCP server to ~/.codex/config.toml")
	}
}

func askYesNo(prompt string) bool {
	fmt.Print(prompt)
	s, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "y" || s == "yes"
}

func appendTomlMCP(path, exe string) error {
	snippet := fmt.Sprintf("\n[mcp_servers.omnitui]\ncommand = %q\nargs = [\"server\"]\nenv = {}\n", exe)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(snippet)
	return err
}

func runClaudeCLIAdd(exe string) error {
	cmd := exec.Command("claude", "mcp", "add", "omnitui", exe, "server")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// OpenBrowser opens url with the platform's default handler.
func OpenBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "linux":
		return exec.Command("xdg-open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return nil
	}
}
