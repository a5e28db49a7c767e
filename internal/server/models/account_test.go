package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.com", NormalizeEmail("  A@B.Com "))
	assert.Equal(t, "", NormalizeEmail(""))
}

func TestAccount_CloneIsDeep(t *testing.T) {
	first := "Alice"
	now := time.Now()
	a := &Account{ID: "1", Email: "a@b.com", FirstName: &first, LastLoginDate: &now}

	c := a.Clone()
	*c.FirstName = "Bob"
	*c.LastLoginDate = now.Add(time.Hour)

	assert.Equal(t, "Alice", *a.FirstName)
	assert.Equal(t, now, *a.LastLoginDate)
	assert.Nil(t, c.LastName)

	var nilAccount *Account
	assert.Nil(t, nilAccount.Clone())
}
