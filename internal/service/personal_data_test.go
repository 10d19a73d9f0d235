package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickettally/ticket-engine/internal/domain"
)

func ticketTitles(tickets []domain.Ticket) []string {
	titles := make([]string, 0, len(tickets))
	for _, t := range tickets {
		titles = append(titles, t.Title)
	}
	return titles
}

func TestPersonalDataScopesTicketsByRole(t *testing.T) {
	env := newTestEnv(t)
	network := env.team("Network")
	dana := env.user("dana", domain.UserRoleEmployee, nil)
	lee := env.user("lee", domain.UserRoleEmployee, nil)
	teamStaff := env.user("sam", domain.UserRoleITStaff, &network.ID)
	loneStaff := env.user("kim", domain.UserRoleITStaff, nil)
	admin := env.user("admin", domain.UserRoleAdmin, nil)

	vpn, err := env.tickets.CreateTicket(env.ctx, dana, CreateTicketInput{Title: "VPN drops", TeamID: &network.ID})
	require.NoError(t, err)
	printer := env.openTicket(lee, "Printer jams", domain.TicketPriorityLow)
	_, err = env.assignments.ClaimTicket(env.ctx, loneStaff, printer.ID)
	require.NoError(t, err)

	_, err = env.tickets.AddComment(env.ctx, dana, vpn.ID, "Still dropping", nil)
	require.NoError(t, err)

	t.Run("employee exports the tickets they opened", func(t *testing.T) {
		data, err := env.tickets.PersonalData(env.ctx, dana)
		require.NoError(t, err)
		assert.Equal(t, dana.ID, data.User.ID)
		assert.Equal(t, []string{"VPN drops"}, ticketTitles(data.Tickets))
		require.Len(t, data.Comments, 1)
		assert.Equal(t, "Still dropping", data.Comments[0].Text)
		assert.Equal(t, baseTime, data.ExportedAt)
	})

	t.Run("team staff export their team's tickets", func(t *testing.T) {
		data, err := env.tickets.PersonalData(env.ctx, teamStaff)
		require.NoError(t, err)
		assert.Equal(t, "Network", data.TeamName)
		assert.Equal(t, []string{"VPN drops"}, ticketTitles(data.Tickets))
	})

	t.Run("staff without a team export their assignments", func(t *testing.T) {
		data, err := env.tickets.PersonalData(env.ctx, loneStaff)
		require.NoError(t, err)
		assert.Equal(t, []string{"Printer jams"}, ticketTitles(data.Tickets))
	})

	t.Run("admins export no tickets", func(t *testing.T) {
		data, err := env.tickets.PersonalData(env.ctx, admin)
		require.NoError(t, err)
		assert.Empty(t, data.Tickets)
		assert.Empty(t, data.Comments)
	})
}
