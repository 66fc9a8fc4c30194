package goal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/stash/internal/goal"
)

func TestMatches(t *testing.T) {
	type args struct {
		pattern             string
		notes               string
		importedDescription string
	}

	type testCase struct {
		name string
		args args
		want bool
	}

	tests := []testCase{
		{
			name: "TagInNotes",
			args: args{pattern: "car", notes: "Paycheck #car"},
			want: true,
		},
		{
			name: "TagInImportedDescription",
			args: args{pattern: "car", importedDescription: "TRANSFER #car SAVINGS"},
			want: true,
		},
		{
			name: "NoTag",
			args: args{pattern: "car", notes: "bonus", importedDescription: "PAYROLL"},
			want: false,
		},
		{
			name: "WordWithoutHash",
			args: args{pattern: "car", notes: "car repair"},
			want: false,
		},
		{
			name: "CaseSensitive",
			args: args{pattern: "car", notes: "#Car"},
			want: false,
		},
		{
			name: "NoTokenBoundary",
			args: args{pattern: "car", notes: "#carpool to work"},
			want: true,
		},
		{
			name: "UnderscoreIsLiteral",
			args: args{pattern: "new_car", notes: "#newXcar"},
			want: false,
		},
		{
			name: "EmptyPattern",
			args: args{pattern: "", notes: "# anything"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := goal.Matches(tt.args.pattern, tt.args.notes, tt.args.importedDescription)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePattern(t *testing.T) {
	valid := []string{"car", "Vacation2027", "new_car", "_", "123"}
	for _, p := range valid {
		assert.NoError(t, goal.ValidatePattern(p), p)
	}

	invalid := []string{"", "#car", "new car", "car-fund", "café", "a.b"}
	for _, p := range invalid {
		err := goal.ValidatePattern(p)
		assert.Error(t, err, p)
		assert.True(t, goal.IsValidation(err), p)
	}
}

func TestStripTag(t *testing.T) {
	type testCase struct {
		name    string
		text    string
		pattern string
		want    string
	}

	tests := []testCase{
		{name: "TrailingTag", text: "Paycheck #car", pattern: "car", want: "Paycheck"},
		{name: "LeadingTag", text: "#car deposit", pattern: "car", want: "deposit"},
		{name: "MiddleTagCollapsesSpaces", text: "Monthly   #car  savings", pattern: "car", want: "Monthly savings"},
		{name: "OnlyFirstOccurrence", text: "#car and #car", pattern: "car", want: "and #car"},
		{name: "OnlyTagFallsBack", text: "  #car ", pattern: "car", want: "  #car "},
		{name: "NoTag", text: "bonus  pay", pattern: "car", want: "bonus pay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, goal.StripTag(tt.text, tt.pattern))
		})
	}
}
