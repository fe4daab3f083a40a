package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func TestAuthor_Age(t *testing.T) {
	ref := date(2026, time.June, 15)

	tests := []struct {
		name    string
		birth   *time.Time
		death   *time.Time
		want    int
		wantNil bool
	}{
		{
			name:  "birthday already passed this year",
			birth: datePtr(1980, time.March, 1),
			want:  46,
		},
		{
			name:  "birthday later this year",
			birth: datePtr(1980, time.October, 1),
			want:  45,
		},
		{
			name:  "birthday today",
			birth: datePtr(1980, time.June, 15),
			want:  46,
		},
		{
			name:  "same month, birthday tomorrow",
			birth: datePtr(1980, time.June, 16),
			want:  45,
		},
		{
			name:  "deceased author capped at death date",
			birth: datePtr(1900, time.January, 10),
			death: datePtr(1970, time.January, 5),
			want:  69,
		},
		{
			name:    "unknown date of birth",
			birth:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Author{DateOfBirth: tt.birth, DateOfDeath: tt.death}
			got := a.Age(ref)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestAuthor_ValidateDates(t *testing.T) {
	now := date(2026, time.June, 15)

	tests := []struct {
		name    string
		birth   *time.Time
		death   *time.Time
		wantErr string
	}{
		{
			name:  "valid living author",
			birth: datePtr(1980, time.March, 1),
		},
		{
			name:  "valid deceased author",
			birth: datePtr(1900, time.January, 1),
			death: datePtr(1980, time.May, 2),
		},
		{
			name:    "birth in future",
			birth:   datePtr(2030, time.January, 1),
			wantErr: "date of birth cannot be in the future",
		},
		{
			name:    "death in future",
			birth:   datePtr(1980, time.January, 1),
			death:   datePtr(2030, time.January, 1),
			wantErr: "date of death cannot be in the future",
		},
		{
			name:    "death before birth",
			birth:   datePtr(1980, time.January, 1),
			death:   datePtr(1970, time.January, 1),
			wantErr: "date of death must be after date of birth",
		},
		{
			name:    "death equals birth",
			birth:   datePtr(1980, time.January, 1),
			death:   datePtr(1980, time.January, 1),
			wantErr: "date of death must be after date of birth",
		},
		{
			name: "no dates at all",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Author{DateOfBirth: tt.birth, DateOfDeath: tt.death}
			err := a.ValidateDates(now)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, err.Error())
			}
		})
	}
}
