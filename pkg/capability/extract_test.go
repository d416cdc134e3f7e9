package capability

import "testing"

func TestExtractSQL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "fenced sql block",
			in:   "Here you go:\n```sql\nSELECT * FROM orders;\n```",
			want: "SELECT * FROM orders;",
		},
		{
			name: "plain fence",
			in:   "```\nselect id from customers\n```",
			want: "select id from customers",
		},
		{
			name: "prose prefix",
			in:   "The query is: SELECT name FROM products;",
			want: "SELECT name FROM products;",
		},
		{
			name: "already clean",
			in:   "  SELECT 1;  ",
			want: "SELECT 1;",
		},
		{
			name: "no select token",
			in:   "  I cannot answer that.  ",
			want: "I cannot answer that.",
		},
		{
			name: "select inside word is not a token",
			in:   "deselected all rows",
			want: "deselected all rows",
		},
		{
			name: "fenced non-select",
			in:   "```sql\nDROP TABLE x;\n```",
			want: "DROP TABLE x;",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractSQL(tc.in); got != tc.want {
				t.Fatalf("ExtractSQL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
