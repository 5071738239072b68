package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitreward/internal/engine"
	"github.com/julianstephens/habitreward/internal/models"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	RewardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	WarnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("236")).
			Padding(0, 1)
)

// RenderCompletion formats a completion summary.
func RenderCompletion(res *engine.CompletionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", TitleStyle.Render("✓ "+res.HabitName), MutedStyle.Render(res.CompletionDate))
	fmt.Fprintf(&b, "Streak: %d  Effort: %.1f\n", res.Streak, res.EffortScore)

	switch {
	case res.Reward == nil:
		b.WriteString(MutedStyle.Render("No reward this time. Keep going!"))
	case res.Progress != nil:
		fmt.Fprintf(&b, "%s %s", RewardStyle.Render("★ "+res.Reward.Name), ProgressBar(*res.Progress))
		if res.Reward.PieceValue != "" {
			fmt.Fprintf(&b, "\n%s", MutedStyle.Render("+1 "+res.Reward.PieceValue))
		}
	default:
		b.WriteString(RewardStyle.Render("★ " + res.Reward.Name))
	}

	if res.Backdated && len(res.RecomputedLogs) > 0 {
		fmt.Fprintf(&b, "\n%s", WarnStyle.Render(fmt.Sprintf("Recomputed %d later streak(s)", len(res.RecomputedLogs))))
	}
	return BoxStyle.Render(b.String())
}

// ProgressBar renders pieces earned out of required with the derived status.
func ProgressBar(p models.RewardProgress) string {
	const width = 10
	filled := width
	if p.PiecesRequired > 0 && p.PiecesEarned < p.PiecesRequired {
		filled = p.PiecesEarned * width / p.PiecesRequired
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("[%s] %d/%d %s", bar, p.PiecesEarned, p.PiecesRequired, p.Status())
}
