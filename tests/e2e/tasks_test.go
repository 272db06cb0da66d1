package e2e

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotrs-io/boardcheck/internal/board"
	"github.com/gotrs-io/boardcheck/internal/dataset"
	"github.com/gotrs-io/boardcheck/tests/e2e/config"
	"github.com/gotrs-io/boardcheck/tests/e2e/helpers"
)

func TestTasks(t *testing.T) {
	scenarios, err := dataset.Load(config.GetConfig().Dataset)
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			b := helpers.NewBrowserHelper(t)
			require.NoError(t, b.Setup())
			defer b.TearDown()

			auth := helpers.NewAuthHelper(b)
			require.NoError(t, auth.Login(), "sign in")
			require.True(t, auth.IsLoggedIn())

			err := board.NewVerifier(b.Session, b.Run).VerifyScenario(b.Context(), s)
			assert.NoError(t, err, s.Title())
		})
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	b := helpers.NewBrowserHelper(t)
	require.NoError(t, b.Setup())
	defer b.TearDown()

	err := helpers.NewAuthHelper(b).LoginAs(b.Config.Username, "definitely-wrong")
	require.Error(t, err)
	assert.ErrorIs(t, err, board.ErrLandmarkMissing)
}

func TestLogout(t *testing.T) {
	b := helpers.NewBrowserHelper(t)
	require.NoError(t, b.Setup())
	defer b.TearDown()

	auth := helpers.NewAuthHelper(b)
	require.NoError(t, auth.Login())
	require.NoError(t, auth.Logout())

	require.NoError(t, b.NavigateTo("/projects"))
	assert.False(t, auth.IsLoggedIn())
}

// styledBoard renders its card title in capitals and keeps a collapsed copy
// of the column ahead of the visible one.
const styledBoard = `<!DOCTYPE html><html><body>
<nav><form method="get" action="/board"><button type="submit"><h2>Planner</h2></button></form></nav>
<header><h1>Planner</h1></header>
<main>
  <div class="w-80" style="display: none">
    <h2>In Progress</h2>
    <div><h3>Design review</h3><span>design</span></div>
  </div>
  <div class="w-80">
    <h2>In Progress (1)</h2>
    <div><h3 style="text-transform: uppercase">Design review</h3><span>urgent</span></div>
  </div>
</main>
</body></html>`

func TestStyledBoard(t *testing.T) {
	b := helpers.NewBrowserHelper(t)
	require.NoError(t, b.Setup())
	defer b.TearDown()

	require.NoError(t, b.Session.Navigate(b.Context(), b.ServePage(styledBoard)))
	v := board.NewVerifier(b.Session, b.Run)

	t.Run("title ignores text-transform", func(t *testing.T) {
		err := v.Verify(b.Context(), "Planner", "In Progress", "Design review", []string{"urgent"})
		assert.NoError(t, err)
	})

	t.Run("hidden column copy is skipped", func(t *testing.T) {
		err := v.Verify(b.Context(), "Planner", "In Progress", "Design review", []string{"design"})
		assert.ErrorIs(t, err, board.ErrTagMissing)
	})
}
