package utils

import (
	"github.com/Govind-619/MemberSphere/models"
	"github.com/tealeg/xlsx"
)

var rosterHeaders = []string{"Member Number", "Name", "Email", "Status", "Start Date", "End Date"}

// BuildMemberRoster lays out one row per subscription of plan below a header row
func BuildMemberRoster(plan *models.Plan, subs []models.Subscription) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Members")
	if err != nil {
		return nil, WrapError(err, "failed to create roster sheet")
	}

	headerRow := sheet.AddRow()
	for _, h := range rosterHeaders {
		cell := headerRow.AddCell()
		cell.SetString(h)
		style := xlsx.NewStyle()
		font := xlsx.DefaultFont()
		font.Bold = true
		style.Font = *font
		cell.SetStyle(style)
	}

	for _, sub := range subs {
		row := sheet.AddRow()
		row.AddCell().SetString(sub.MemberNumber)
		row.AddCell().SetString(Title(sub.User.FullName()))
		row.AddCell().SetString(sub.User.Email)
		row.AddCell().SetString(sub.Status)
		row.AddCell().SetString(formatDate(sub.StartDate))
		row.AddCell().SetString(formatDate(sub.EndDate))
	}

	LogDebug("Built roster for plan %d (%s) with %d members", plan.ID, plan.Name, len(subs))
	return file, nil
}
