package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionDigitalCardClonesCreatorTemplate(t *testing.T) {
	db := SetupTestDB(t)
	owner := CreateTestUser(t, db, "owner@example.com")
	member := CreateTestUser(t, db, "member@example.com")
	plan := CreateTestPlan(t, db, owner, "10", models.RenewalMonthly)

	otherOwner := CreateTestUser(t, db, "other@example.com")
	shared := models.DigitalCard{IsTemplate: true, PlanID: &plan.ID, CreatedBy: otherOwner.ID, PrimaryColor: "#000000", BarcodeType: "code128"}
	require.NoError(t, db.Create(&shared).Error)
	own := models.DigitalCard{IsTemplate: true, CreatedBy: owner.ID, Title: "Gold Club", LogoURL: "https://cdn.example.com/logo.png",
		PrimaryColor: "#112233", SecondaryColor: "#445566", TextColor: "#FAFAFA", ShowBarcode: false, BarcodeType: "code128"}
	require.NoError(t, db.Create(&own).Error)

	sub, err := CreateSubscription(db, member.ID, plan.ID)
	require.NoError(t, err)

	card, err := ProvisionDigitalCard(db, sub, plan)
	require.NoError(t, err)
	assert.False(t, card.IsTemplate)
	assert.Equal(t, "Gold Club", card.Title)
	assert.Equal(t, "#112233", card.PrimaryColor)
	assert.Equal(t, "https://cdn.example.com/logo.png", card.LogoURL)
	assert.False(t, card.ShowBarcode)
	assert.Equal(t, plan.Name, card.PlanName)

	var stored models.DigitalCard
	require.NoError(t, db.First(&stored, card.ID).Error)
	assert.False(t, stored.ShowBarcode)

	again, err := ProvisionDigitalCard(db, sub, plan)
	require.NoError(t, err)
	assert.Equal(t, card.ID, again.ID)
}

func TestFindCardTemplateFallsBackToPlanScope(t *testing.T) {
	db := SetupTestDB(t)
	owner := CreateTestUser(t, db, "owner@example.com")
	other := CreateTestUser(t, db, "other@example.com")
	plan := CreateTestPlan(t, db, owner, "10", models.RenewalMonthly)

	template, err := FindCardTemplate(db, plan)
	require.NoError(t, err)
	assert.Nil(t, template)

	shared := models.DigitalCard{IsTemplate: true, PlanID: &plan.ID, CreatedBy: other.ID, Title: "Shared"}
	require.NoError(t, db.Create(&shared).Error)

	template, err = FindCardTemplate(db, plan)
	require.NoError(t, err)
	require.NotNil(t, template)
	assert.Equal(t, shared.ID, template.ID)
}

func TestRenderCardPDF(t *testing.T) {
	end := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	card := &models.DigitalCard{
		MemberNumber: "MBR-1A2B3C4D",
		HolderName:   "Ada Lovelace",
		PlanName:     "Gold",
		Title:        "Gold Club",
		PrimaryColor: "#123",
		TextColor:    "not-a-color",
		ShowBarcode:  true,
		BarcodeType:  "qr",
		ValidUntil:   &end,
	}

	pdf, err := RenderCardPDF(card)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestHexToRGB(t *testing.T) {
	r, g, b := hexToRGB("#FF8000", DefaultCardPrimaryColor)
	assert.Equal(t, []int{255, 128, 0}, []int{r, g, b})

	r, g, b = hexToRGB("#fff", DefaultCardPrimaryColor)
	assert.Equal(t, []int{255, 255, 255}, []int{r, g, b})

	r, g, b = hexToRGB("blue", "#000000")
	assert.Equal(t, []int{0, 0, 0}, []int{r, g, b})
}
