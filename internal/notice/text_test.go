package notice

import (
	"testing"
)

func TestPlainText_HTMLEmail(t *testing.T) {
	raw := `<html><head><title>Notice</title><style>p{color:red}</style></head>
<body>
  <p>Dear Dasher,</p>
  <p>Your account has been <b>deactivated</b> due to
     a low customer rating.</p>
  <ul><li>Rating: 4.1</li><li>Required: 4.2</li></ul>
  <script>track()</script>
  <i>This is an automated notice.</i>
</body></html>`

	want := "Dear Dasher,\nYour account has been deactivated due to a low customer rating.\nRating: 4.1\nRequired: 4.2\nThis is an automated notice."

	if got := PlainText(raw); got != want {
		t.Errorf("PlainText() =\n%q\nwant\n%q", got, want)
	}
}

func TestPlainText_PassesPlainTextThrough(t *testing.T) {
	raw := "Your account   is deactivated.\r\n\r\n  Appeal within 10 days.  "
	want := "Your account is deactivated.\nAppeal within 10 days."

	if got := PlainText(raw); got != want {
		t.Errorf("PlainText() = %q, want %q", got, want)
	}
}

func TestPlainText_Entities(t *testing.T) {
	if got := PlainText("<p>Terms &amp; Conditions</p>"); got != "Terms & Conditions" {
		t.Errorf("PlainText() = %q", got)
	}
}

func TestLooksLikeHTML(t *testing.T) {
	tests := map[string]bool{
		"<p>hello</p>":               true,
		"Line one<br>Line two":       true,
		"Your rating fell below 4.2": false,
		"a < b and c > d":            false,
	}
	for in, want := range tests {
		if got := LooksLikeHTML(in); got != want {
			t.Errorf("LooksLikeHTML(%q) = %v, want %v", in, got, want)
		}
	}
}
