package scenario

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/chatcheck/internal/browser"
	"github.com/ibeckermayer/chatcheck/internal/config"
	"github.com/ibeckermayer/chatcheck/internal/fixture"
	"github.com/ibeckermayer/chatcheck/internal/logging"
	"github.com/ibeckermayer/chatcheck/internal/types"
)

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"chat", "checkmarks", "features", "frontend", "mobile", "responsive"}, Names())

	for _, s := range All() {
		assert.NotEmpty(t, s.Description(), s.Name())
		got, err := Lookup(s.Name())
		require.NoError(t, err)
		assert.Equal(t, s.Name(), got.Name())
	}

	_, err := Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestResolve(t *testing.T) {
	all, err := Resolve(nil)
	require.NoError(t, err)
	assert.Len(t, all, len(Names()))

	got, err := Resolve([]string{"mobile", "chat", "mobile"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "mobile", got[0].Name())
	assert.Equal(t, "chat", got[1].Name())

	_, err = Resolve([]string{"chat", "bogus"})
	assert.ErrorIs(t, err, ErrUnknown)
}

type fakeScenario struct {
	run func(ctx context.Context, env *Env) error
}

func (fakeScenario) Name() string        { return "fake" }
func (fakeScenario) Description() string { return "fake" }
func (f fakeScenario) Run(ctx context.Context, env *Env) error {
	return f.run(ctx, env)
}

type noSessions struct{}

func (noSessions) NewSession(string, browser.SessionOptions) (*browser.Session, error) {
	return nil, errors.New("no browser")
}

func testEnv() *Env {
	cfg := config.Default()
	log := logging.Discard()
	return NewEnv("fake", cfg, noSessions{}, nil, fixture.New(cfg, nil, log), log)
}

func TestExecuteStatus(t *testing.T) {
	tests := []struct {
		name   string
		run    func(ctx context.Context, env *Env) error
		status types.Status
		checks int
	}{
		{
			name: "passed",
			run: func(_ context.Context, env *Env) error {
				env.Check("one", true, "fine")
				env.Expect("two", nil)
				return nil
			},
			status: types.StatusPassed,
			checks: 2,
		},
		{
			name: "failed check",
			run: func(_ context.Context, env *Env) error {
				env.Check("one", true, "fine")
				env.Expect("two", errors.New("nope"))
				return nil
			},
			status: types.StatusFailed,
			checks: 2,
		},
		{
			name: "error wins over checks",
			run: func(_ context.Context, env *Env) error {
				env.Check("one", false, "bad")
				return errors.New("boom")
			},
			status: types.StatusErrored,
			checks: 1,
		},
		{
			name: "panic",
			run: func(context.Context, *Env) error {
				panic("oops")
			},
			status: types.StatusErrored,
		},
		{
			name: "session failure",
			run: func(_ context.Context, env *Env) error {
				_, err := env.OpenPage("main", browser.Desktop())
				return err
			},
			status: types.StatusErrored,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Execute(context.Background(), fakeScenario{run: tt.run}, testEnv())
			assert.Equal(t, "fake", res.Scenario)
			assert.Equal(t, tt.status, res.Status)
			assert.Len(t, res.Checks, tt.checks)
			assert.Equal(t, tt.status == types.StatusErrored, res.Error != "")
			assert.False(t, res.StartedAt.IsZero())
		})
	}
}

func TestCheckFormatsDetail(t *testing.T) {
	env := testEnv()
	assert.True(t, env.Check("a", true, "x=%d", 3))
	assert.False(t, env.Check("b", false, "100%"))
	checks := env.Checks()
	assert.Equal(t, "x=3", checks[0].Detail)
	assert.Equal(t, "100%", checks[1].Detail)
}

func TestOpenPageAfterClose(t *testing.T) {
	env := testEnv()
	env.Close()
	_, err := env.OpenPage("late", browser.Desktop())
	assert.ErrorContains(t, err, "already finished")
}

func TestContainsFold(t *testing.T) {
	assert.True(t, containsFold("📌 PIN\nGroup info", "Pin"))
	assert.False(t, containsFold("Reply", "Seen by"))
}
