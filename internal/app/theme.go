package app

import (
	"charm.land/lipgloss/v2"

	"payadmin/internal/types"
)

var (
	headerStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	dividerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	selectedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("236"))
	tableHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Padding(0, 1)
	tableCellStyle     = lipgloss.NewStyle().Padding(0, 1)
	tabStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Padding(0, 1)
	tabActiveStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("239")).Bold(true).Padding(0, 1)
	pendingBadgeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("166")).Bold(true).Padding(0, 1)
	pendingIdleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	promptFrameStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("69")).Padding(0, 1)
	statusPendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("179"))
	statusReviewStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("110"))
	statusSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	statusFailureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	toastInfoStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("25")).Bold(true)
	toastSuccessStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("29")).Bold(true)
	toastWarningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("136")).Bold(true)
	toastErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Bold(true)
)

func statusStyleFor(status types.Status) lipgloss.Style {
	switch status.Group() {
	case types.GroupPending:
		return statusPendingStyle
	case types.GroupReview:
		return statusReviewStyle
	case types.GroupSuccess:
		return statusSuccessStyle
	case types.GroupFailure:
		return statusFailureStyle
	default:
		return statusStyle
	}
}
