// Package launchd installs the periodic offline sync as a macOS user agent.
package launchd

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"text/template"
)

// DefaultLabel names the sync agent.
const DefaultLabel = "app.omnivore.omnitui.sync"

// InstallOptions config for creating/loading a launchd agent.
type InstallOptions struct {
	Label           string
	IntervalMinutes int
	ProgramPath     string   // absolute path to this binary
	ProgramArgs     []string // args after ProgramPath
	LogPath         string   // stdout and stderr of the agent
	PlistPath       string   // optional custom plist path
}

func DefaultAgentPath(label string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "LaunchAgents", label+".plist"), nil
}

var plistTemplate = template.Must(template.New("plist").Funcs(template.FuncMap{"xml": escapeXML}).Parse(
	`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
  <dict>
    <key>Label</key>
    <string>{{xml .Label}}</string>
    <key>ProgramArguments</key>
    <array>
{{- range .Args}}
      <string>{{xml .}}</string>
{{- end}}
    </array>
    <key>StartInterval</key>
    <integer>{{.Seconds}}</integer>
    <key>RunAtLoad</key>
    <true/>
    <key>ProcessType</key>
    <string>Background</string>
    <key>StandardOutPath</key>
    <string>{{xml .Log}}</string>
    <key>StandardErrorPath</key>
    <string>{{xml .Log}}</string>
  </dict>
</plist>
`))

func escapeXML(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// BuildPlist renders an agent that runs the program every IntervalMinutes.
// The job exits after each run, so it is not kept alive.
func BuildPlist(opt InstallOptions) ([]byte, error) {
	if opt.Label == "" {
		return nil, errors.New("label required")
	}
	if opt.ProgramPath == "" {
		return nil, errors.New("program path required")
	}
	if opt.IntervalMinutes <= 0 {
		opt.IntervalMinutes = 30
	}
	if opt.LogPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		opt.LogPath = filepath.Join(home, "Library", "Logs", "omnitui", "sync.launchd.log")
	}

	var buf bytes.Buffer
	err := plistTemplate.Execute(&buf, struct {
		Label   string
		Args    []string
		Seconds int
		Log     string
	}{
		Label:   opt.Label,
		Args:    append([]string{opt.ProgramPath}, opt.ProgramArgs...),
		Seconds: opt.IntervalMinutes * 60,
		Log:     opt.LogPath,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func userDomain() string {
	return fmt.Sprintf("gui/%d", os.Getuid())
}

// Install writes the plist and loads it via launchctl.
func Install(opt InstallOptions) (string, error) {
	if runtime.GOOS != "darwin" {
		return "", errors.New("launchd is only available on macOS; schedule 'omnitui sync' with cron instead")
	}
	plistPath := opt.PlistPath
	if strings.TrimSpace(plistPath) == "" {
		var err error
		if plistPath, err = DefaultAgentPath(opt.Label); err != nil {
			return "", err
		}
	}
	data, err := BuildPlist(opt)
	if err != nil {
		return "", err
	}
	if opt.LogPath != "" {
		_ = os.MkdirAll(filepath.Dir(opt.LogPath), 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(plistPath), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(plistPath, data, 0o644); err != nil {
		return "", err
	}

	lctl := launchctlPath()
	if lctl == "" {
		return plistPath, errors.New("launchctl not found in /bin, /usr/bin, or PATH")
	}
	domain := userDomain()
	// Reinstalling replaces a loaded agent.
	_ = exec.Command(lctl, "bootout", domain, plistPath).Run()
	if err := exec.Command(lctl, "bootstrap", domain, plistPath).Run(); err != nil {
		if err2 := exec.Command(lctl, "load", "-w", plistPath).Run(); err2 != nil {
			return plistPath, fmt.Errorf("launchctl bootstrap/load failed: %v / %v", err, err2)
		}
		return plistPath, nil
	}
	_ = exec.Command(lctl, "enable", domain+"/"+opt.Label).Run()
	return plistPath, nil
}

// Uninstall unloads and removes the plist.
func Uninstall(label string, plistPath string) error {
	if runtime.GOOS != "darwin" {
		return errors.New("launchd is only available on macOS")
	}
	if strings.TrimSpace(plistPath) == "" {
		var err error
		if plistPath, err = DefaultAgentPath(label); err != nil {
			return err
		}
	}
	lctl := launchctlPath()
	if lctl == "" {
		return errors.New("launchctl not found")
	}
	if err := exec.Command(lctl, "bootout", userDomain(), plistPath).Run(); err != nil {
		_ = exec.Command(lctl, "unload", "-w", plistPath).Run()
	}
	if err := os.Remove(plistPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Status returns whether the agent is loaded and a short human string.
func Status(label string) (bool, string) {
	if runtime.GOOS != "darwin" || strings.TrimSpace(label) == "" {
		return false, "unsupported"
	}
	lctl := launchctlPath()
	if lctl == "" {
		return false, "launchctl not found"
	}
	out, err := exec.Command(lctl, "print", userDomain()+"/"+label).CombinedOutput()
	if err != nil {
		return false, "not loaded"
	}
	for _, ln := range strings.Split(string(out), "\n") {
		if strings.Contains(ln, "state = ") {
			return true, strings.TrimSpace(ln)
		}
	}
	return true, "loaded"
}

func launchctlPath() string {
	for _, c := range []string{"/bin/launchctl", "/usr/bin/launchctl"} {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	if p, err := exec.LookPath("launchctl"); err == nil {
		return p
	}
	return ""
}

var startIntervalRe = regexp.MustCompile(`<key>StartInterval</key>\s*<integer>\s*(\d+)\s*</integer>`)

// ExtractStartInterval reads StartInterval seconds from a plist file.
func ExtractStartInterval(plistPath string) (int, error) {
	b, err := os.ReadFile(plistPath)
	if err != nil {
		return 0, err
	}
	m := startIntervalRe.FindSubmatch(b)
	if m == nil {
		return 0, errors.New("StartInterval not found")
	}
	return strconv.Atoi(string(m[1]))
}
