package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluebird-io/portal/internal/binding"
	"github.com/bluebird-io/portal/internal/sessions"
	"github.com/bluebird-io/portal/internal/site"
	"github.com/bluebird-io/portal/internal/storage"
	"github.com/bluebird-io/portal/internal/v2board"
)

func newTestBinding(t *testing.T) *binding.Binding {
	t.Helper()

	apiClient, err := v2board.NewClient("http://127.0.0.1:1")
	require.NoError(t, err)

	view := binding.New(sessions.NewManager(context.Background(), apiClient, storage.NewMemoryStore()))
	t.Cleanup(view.Close)
	return view
}

func TestSpinnerModel_QuitsWhenOperationFinishes(t *testing.T) {
	cancelled := false
	model := newSpinnerModel("Working", newTestBinding(t), nil, func() { cancelled = true })

	updated, cmd := model.Update(operationDoneMsg{value: "done"})
	m := updated.(spinnerModel)

	assert.True(t, m.done)
	assert.Equal(t, "done", m.value)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
	assert.False(t, cancelled)
}

func TestSpinnerModel_WaitsForLoadingToClear(t *testing.T) {
	model := newSpinnerModel("Working", newTestBinding(t), nil, func() {})

	updated, cmd := model.Update(binding.StateMsg{IsLoading: true, Version: 1})
	m := updated.(spinnerModel)
	assert.True(t, m.loading)
	assert.False(t, m.done)
	assert.NotNil(t, cmd)
	assert.True(t, strings.Contains(m.View(), "Working"))

	// A late snapshot that clears loading after the operation returned quits
	m.done = true
	updated, cmd = m.Update(binding.StateMsg{IsLoading: false, Version: 2})
	m = updated.(spinnerModel)
	assert.False(t, m.loading)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestSpinnerModel_CtrlCCancels(t *testing.T) {
	cancelled := false
	model := newSpinnerModel("Working", newTestBinding(t), nil, func() { cancelled = true })

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m := updated.(spinnerModel)

	assert.True(t, m.cancelled)
	assert.True(t, cancelled)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestSpinnerModel_IgnoresClosedBinding(t *testing.T) {
	model := newSpinnerModel("Working", newTestBinding(t), nil, func() {})

	updated, cmd := model.Update(binding.ClosedMsg{})
	assert.Nil(t, cmd)
	assert.False(t, updated.(spinnerModel).done)
}

func TestServiceArguments(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{}
		cmd.Flags().String("config", "", "")
		cmd.Flags().String("api-url", "", "")
		return cmd
	}

	cmd := newCmd()
	assert.Equal(t, []string{"serve"}, serviceArguments(cmd))

	cmd = newCmd()
	require.NoError(t, cmd.Flags().Set("config", "/etc/portal/config.yaml"))
	require.NoError(t, cmd.Flags().Set("api-url", "https://api.example.com"))
	assert.Equal(t, []string{
		"serve",
		"--config", "/etc/portal/config.yaml",
		"--api-url", "https://api.example.com",
	}, serviceArguments(cmd))
}

func TestRenderPlan(t *testing.T) {
	rendered := renderPlan(site.Plan{
		Name:     "专业版",
		Price:    "¥39",
		Period:   "/月",
		Features: []string{"500GB 月流量", "流媒体解锁"},
		Popular:  true,
	})

	assert.Contains(t, rendered, "专业版")
	assert.Contains(t, rendered, "¥39/月")
	assert.Contains(t, rendered, "最受欢迎")
	assert.Contains(t, rendered, "流媒体解锁")
}

func TestCommandsAreRegistered(t *testing.T) {
	expected := []string{
		"login", "register", "send-code", "reset-password", "logout",
		"whoami", "check-email", "plans", "faq", "site", "serve",
		"service", "version",
	}

	for _, name := range expected {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestWriteJSON(t *testing.T) {
	plans := []site.Plan{
		{Name: "基础版", Price: "¥19"},
		{Name: "专业版", Price: "¥39", Popular: true},
	}

	var out bytes.Buffer
	require.NoError(t, writeJSON(&out, plans, ""))
	assert.Contains(t, out.String(), `"name": "基础版"`)

	out.Reset()
	require.NoError(t, writeJSON(&out, plans, ".[] | select(.popular) | .name"))
	assert.Equal(t, "\"专业版\"\n", out.String())

	out.Reset()
	assert.Error(t, writeJSON(&out, plans, ".[] |"))
}
