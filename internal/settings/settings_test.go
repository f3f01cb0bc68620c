package settings

import (
	"context"
	"errors"
	"testing"
)

type countingAuth struct {
	calls int
	err   error
}

func (a *countingAuth) Logout(ctx context.Context) error {
	a.calls++
	return a.err
}

type countingCache struct{ calls int }

func (c *countingCache) ClearCache(ctx context.Context) error {
	c.calls++
	return nil
}

func newModel() (*Model, *countingAuth, *countingCache) {
	auth := &countingAuth{}
	cache := &countingCache{}
	return New(auth, cache, "1.4.0", DefaultLinks("https://omnivore.app/"), nil), auth, cache
}

func TestRowsOrder(t *testing.T) {
	want := []RowKind{
		RowDocumentation, RowFeedback, RowPrivacyPolicy, RowTermsAndConditions,
		RowSpacer, RowManageAccount, RowLogout,
	}
	got := Rows()
	if len(got) != len(want) {
		t.Fatalf("len(Rows()) = %d, want %d", len(got), len(want))
	}
	for i, r := range got {
		if r.Kind != want[i] {
			t.Errorf("row %d = %v, want %v", i, r.Kind, want[i])
		}
	}
	if got[6].Chevron {
		t.Error("Logout row must not show a chevron")
	}
	if !got[0].Chevron || !got[5].Chevron {
		t.Error("navigation rows show a chevron")
	}
}

func TestTap(t *testing.T) {
	tests := []struct {
		row    RowKind
		want   Effect
		dialog Dialog
	}{
		{row: RowDocumentation, want: Effect{Kind: EffectNavigate, Route: RouteDocumentation}},
		{row: RowFeedback, want: Effect{Kind: EffectOpenSupport, URL: "https://omnivore.app/help"}},
		{row: RowPrivacyPolicy, want: Effect{Kind: EffectNavigate, Route: RoutePrivacyPolicy}},
		{row: RowTermsAndConditions, want: Effect{Kind: EffectNavigate, Route: RouteTermsAndConditions}},
		{row: RowSpacer, want: Effect{}},
		{row: RowManageAccount, want: Effect{}, dialog: ManageAccountDialog},
		{row: RowLogout, want: Effect{}, dialog: LogoutDialog},
	}
	for _, tt := range tests {
		m, auth, _ := newModel()
		if got := m.Tap(tt.row); got != tt.want {
			t.Errorf("Tap(%v) = %+v, want %+v", tt.row, got, tt.want)
		}
		if m.Dialog() != tt.dialog {
			t.Errorf("Tap(%v) dialog = %v, want %v", tt.row, m.Dialog(), tt.dialog)
		}
		if auth.calls != 0 {
			t.Errorf("Tap(%v) called Logout", tt.row)
		}
	}
}

func TestResolveLogout(t *testing.T) {
	tests := []struct {
		name    string
		resolve func(m *Model)
		calls   int
	}{
		{name: "confirmed", resolve: func(m *Model) { m.ResolveLogout(context.Background(), true) }, calls: 1},
		{name: "declined", resolve: func(m *Model) { m.ResolveLogout(context.Background(), false) }, calls: 0},
		{name: "dismissed", resolve: func(m *Model) { m.DismissDialog() }, calls: 0},
		{
			name: "confirmed twice",
			resolve: func(m *Model) {
				m.ResolveLogout(context.Background(), true)
				m.ResolveLogout(context.Background(), true)
			},
			calls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, auth, _ := newModel()
			m.Tap(RowLogout)
			tt.resolve(m)
			if auth.calls != tt.calls {
				t.Errorf("Logout calls = %d, want %d", auth.calls, tt.calls)
			}
			if m.Dialog() != NoDialog {
				t.Errorf("dialog = %v, want hidden", m.Dialog())
			}
		})
	}
}

func TestResolveLogoutErrorIsSwallowed(t *testing.T) {
	m, auth, _ := newModel()
	auth.err = errors.New("network down")
	m.Tap(RowLogout)
	m.ResolveLogout(t.Context(), true)
	if auth.calls != 1 || m.Dialog() != NoDialog {
		t.Errorf("calls = %d, dialog = %v", auth.calls, m.Dialog())
	}
}

func TestManageAccount(t *testing.T) {
	m, auth, cache := newModel()

	m.Tap(RowManageAccount)
	if eff := m.ResolveManageAccount(t.Context(), ActionClearCache); eff != (Effect{}) {
		t.Errorf("clear cache effect = %+v", eff)
	}
	if cache.calls != 1 || m.Dialog() != NoDialog {
		t.Errorf("cache calls = %d, dialog = %v", cache.calls, m.Dialog())
	}

	m.Tap(RowManageAccount)
	eff := m.ResolveManageAccount(t.Context(), ActionOpenAccountPage)
	if eff.Kind != EffectOpenURL || eff.URL != "https://omnivore.app/settings/account" {
		t.Errorf("account page effect = %+v", eff)
	}

	m.Tap(RowManageAccount)
	m.ResolveManageAccount(t.Context(), ActionDismiss)
	if cache.calls != 1 || auth.calls != 0 || m.Dialog() != NoDialog {
		t.Errorf("dismiss acted: cache=%d auth=%d dialog=%v", cache.calls, auth.calls, m.Dialog())
	}

	// Without the dialog open nothing happens.
	m.ResolveManageAccount(t.Context(), ActionClearCache)
	if cache.calls != 1 {
		t.Errorf("cache calls = %d without dialog", cache.calls)
	}
}

func TestHomeAndVersion(t *testing.T) {
	m, _, _ := newModel()
	if eff := m.Home(); eff.Kind != EffectNavigate || eff.Route != RouteLibrary {
		t.Errorf("Home() = %+v", eff)
	}
	if got := m.VersionLabel(); got != "Omnivore Version: 1.4.0" {
		t.Errorf("VersionLabel() = %q", got)
	}
	if got := m.Links().URL(RoutePrivacyPolicy); got != "https://omnivore.app/privacy" {
		t.Errorf("privacy URL = %q", got)
	}
	if got := m.Links().URL(RouteLibrary); got != "" {
		t.Errorf("library URL = %q", got)
	}
}
