// Package settings is the view-model behind the settings screen.
package settings

import (
	"context"
	"io"
	"log"
	"strings"
	"sync"
)

// Route names a destination page.
type Route string

const (
	RouteLibrary            Route = "Library"
	RouteDocumentation      Route = "Documentation"
	RoutePrivacyPolicy      Route = "PrivacyPolicy"
	RouteTermsAndConditions Route = "TermsAndConditions"
)

type RowKind int

const (
	RowDocumentation RowKind = iota
	RowFeedback
	RowPrivacyPolicy
	RowTermsAndConditions
	RowSpacer
	RowManageAccount
	RowLogout
)

// Row is one line of the settings list.
type Row struct {
	Kind    RowKind
	Title   string
	Chevron bool
}

var rows = []Row{
	{Kind: RowDocumentation, Title: "Documentation", Chevron: true},
	{Kind: RowFeedback, Title: "Feedback", Chevron: true},
	{Kind: RowPrivacyPolicy, Title: "Privacy Policy", Chevron: true},
	{Kind: RowTermsAndConditions, Title: "Terms and Conditions", Chevron: true},
	{Kind: RowSpacer},
	{Kind: RowManageAccount, Title: "Manage Account", Chevron: true},
	{Kind: RowLogout, Title: "Logout"},
}

// Rows returns the rows in display order.
func Rows() []Row {
	return append([]Row(nil), rows...)
}

type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectNavigate
	EffectOpenSupport
	EffectOpenURL
)

// Effect is what the front end must do after an interaction.
type Effect struct {
	Kind  EffectKind
	Route Route
	URL   string
}

type Dialog int

const (
	NoDialog Dialog = iota
	LogoutDialog
	ManageAccountDialog
)

type AccountAction int

const (
	ActionClearCache AccountAction = iota
	ActionOpenAccountPage
	ActionDismiss
)

// Links are the web pages the screen points at.
type Links struct {
	Documentation string
	PrivacyPolicy string
	Terms         string
	Support       string
	Account       string
}

// DefaultLinks derives the pages from the service's web address.
func DefaultLinks(webURL string) Links {
	base := strings.TrimRight(webURL, "/")
	return Links{
		Documentation: "https://docs.omnivore.app",
		PrivacyPolicy: base + "/privacy",
		Terms:         base + "/terms",
		Support:       base + "/help",
		Account:       base + "/settings/account",
	}
}

// URL returns the page behind a navigation route, or "".
func (l Links) URL(r Route) string {
	switch r {
	case RouteDocumentation:
		return l.Documentation
	case RoutePrivacyPolicy:
		return l.PrivacyPolicy
	case RouteTermsAndConditions:
		return l.Terms
	}
	return ""
}

// Authenticator ends the session.
type Authenticator interface {
	Logout(ctx context.Context) error
}

// CacheClearer drops locally stored data.
type CacheClearer interface {
	ClearCache(ctx context.Context) error
}

// Model holds the dialog state for one settings screen.
type Model struct {
	auth    Authenticator
	cache   CacheClearer
	version string
	links   Links
	logger  *log.Logger

	mu     sync.Mutex
	dialog Dialog
}

func New(auth Authenticator, cache CacheClearer, version string, links Links, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Model{auth: auth, cache: cache, version: version, links: links, logger: logger}
}

func (m *Model) Links() Links { return m.links }

// VersionLabel is the footer text.
func (m *Model) VersionLabel() string {
	return "Omnivore Version: " + m.version
}

// Dialog returns the dialog currently shown.
func (m *Model) Dialog() Dialog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dialog
}

// Home is the toolbar action back to the library.
func (m *Model) Home() Effect {
	return Effect{Kind: EffectNavigate, Route: RouteLibrary}
}

// Tap handles a row selection.
func (m *Model) Tap(kind RowKind) Effect {
	switch kind {
	case RowDocumentation:
		return Effect{Kind: EffectNavigate, Route: RouteDocumentation}
	case RowFeedback:
		return Effect{Kind: EffectOpenSupport, URL: m.links.Support}
	case RowPrivacyPolicy:
		return Effect{Kind: EffectNavigate, Route: RoutePrivacyPolicy}
	case RowTermsAndConditions:
		return Effect{Kind: EffectNavigate, Route: RouteTermsAndConditions}
	case RowManageAccount:
		m.setDialog(ManageAccountDialog)
	case RowLogout:
		m.setDialog(LogoutDialog)
	}
	return Effect{}
}

// ResolveLogout closes the logout dialog. Only a confirmation logs out;
// a failure is logged and otherwise left to the auth layer.
func (m *Model) ResolveLogout(ctx context.Context, confirm bool) {
	m.mu.Lock()
	if m.dialog != LogoutDialog {
		m.mu.Unlock()
		return
	}
	m.dialog = NoDialog
	m.mu.Unlock()

	if !confirm {
		return
	}
	if err := m.auth.Logout(ctx); err != nil {
		m.logger.Printf("logout failed: %v", err)
	}
}

// ResolveManageAccount closes the manage-account dialog after running
// action.
func (m *Model) ResolveManageAccount(ctx context.Context, action AccountAction) Effect {
	m.mu.Lock()
	if m.dialog != ManageAccountDialog {
		m.mu.Unlock()
		return Effect{}
	}
	m.dialog = NoDialog
	m.mu.Unlock()

	switch action {
	case ActionClearCache:
		if err := m.cache.ClearCache(ctx); err != nil {
			m.logger.Printf("clear cache failed: %v", err)
		}
	case ActionOpenAccountPage:
		return Effect{Kind: EffectOpenURL, URL: m.links.Account}
	}
	return Effect{}
}

// DismissDialog closes whichever dialog is open without acting.
func (m *Model) DismissDialog() {
	m.setDialog(NoDialog)
}

func (m *Model) setDialog(d Dialog) {
	m.mu.Lock()
	m.dialog = d
	m.mu.Unlock()
}
