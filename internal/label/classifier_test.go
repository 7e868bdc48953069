package label

import (
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/logsift/internal/config"
)

func TestFormat(t *testing.T) {
	args := []string{"", "ERR_42", "orders"}

	tests := []struct {
		tmpl    string
		want    string
		wantErr error
	}{
		{"{1}", "ERR_42", nil},
		{"{1}_{2}", "ERR_42_orders", nil},
		{"{2}:{1}:{2}", "orders:ERR_42:orders", nil},
		{"{0}{1}", "ERR_42", nil},
		{"{}{}{}", "ERR_42orders", nil},
		{"literal", "literal", nil},
		{"", "", nil},
		{"{{{1}}}", "{ERR_42}", nil},
		{"a}}b{{c", "a}b{c", nil},
		{"{3}", "", errRange},
		{"{}{}{}{}", "", errRange},
		{"{1", "", errUnbalanced},
		{"1}", "", errUnbalanced},
		{"{name}", "", errFieldName},
		{"{-1}", "", errFieldName},
		{"{+1}", "", errFieldName},
		{"{1.group}", "", errFieldName},
		{"{}{1}", "", errMixed},
		{"{1}{}", "", errMixed},

		// conversions and format specs
		{"{1!s}", "ERR_42", nil},
		{"{1!r}", "'ERR_42'", nil},
		{"{2!r:>10}", "  'orders'", nil},
		{"{1:>8}", "  ERR_42", nil},
		{"{1:<8}|", "ERR_42  |", nil},
		{"{1:^10}", "  ERR_42  ", nil},
		{"{1:^9}", " ERR_42  ", nil},
		{"{1:*>8}", "**ERR_42", nil},
		{"{1:.3}", "ERR", nil},
		{"{1:>5.3}", "  ERR", nil},
		{"{1:8s}|", "ERR_42  |", nil},
		{"{1:08}", "ERR_4200", nil},
		{"{1:>08}", "00ERR_42", nil},
		{"{1:3}", "ERR_42", nil},
		{"{}{:>7}{:.1}", " ERR_42o", nil},
		{"{0:>3}", "   ", nil},
		{"{1!x}", "", errConversion},
		{"{1!}", "", errConversion},
		{"{1!rr}", "", errConversion},
		{"{1:=8}", "", errSpec},
		{"{1:+8}", "", errSpec},
		{"{1:#8}", "", errSpec},
		{"{1:,}", "", errSpec},
		{"{1:d}", "", errSpec},
		{"{1:.}", "", errSpec},
		{"{x:>8}", "", errFieldName},
		{"{3:>8}", "", errRange},
	}

	for _, tt := range tests {
		t.Run(tt.tmpl, func(t *testing.T) {
			got, err := format(tt.tmpl, args)
			if err != tt.wantErr {
				t.Fatalf("format(%q) error = %v, want %v", tt.tmpl, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("format(%q) = %q, want %q", tt.tmpl, got, tt.want)
			}
		})
	}
}

func TestQuote(t *testing.T) {
	tests := []struct{ in, want string }{
		{"abc", `'abc'`},
		{"it's", `"it's"`},
		{`it's "x"`, `'it\'s "x"'`},
		{"a\tb\n", `'a\tb\n'`},
		{`c:\tmp`, `'c:\\tmp'`},
		{"\x01", `'\x01'`},
	}
	for _, tt := range tests {
		if got := quote(tt.in); got != tt.want {
			t.Errorf("quote(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestRuleApply(t *testing.T) {
	rule := Rule{
		Pattern:  regexp.MustCompile(`Response:\s+'?([0-9]+).*for url.+'http(.+)'`),
		Template: "{1}_{2}",
	}
	res := rule.Classify(`Response: '503' for url 'https://crm/api/orders'`)
	if res.Outcome != Labeled {
		t.Fatalf("Outcome = %v, want Labeled (err %v)", res.Outcome, res.Err)
	}
	if res.String() != "503_s://crm/api/orders" {
		t.Errorf("label = %q", res.String())
	}

	if got := rule.Classify("nothing to see"); got.Outcome != NoMatch {
		t.Errorf("Outcome = %v, want NoMatch", got.Outcome)
	}
}

func TestRuleApplyFormatSpec(t *testing.T) {
	rule := Rule{Pattern: regexp.MustCompile(`(OSB-\d+)`), Template: "{1:>12}|{1!r}"}
	res := rule.Classify("BEA-1 OSB-380001 raised")
	if res.Outcome != Labeled {
		t.Fatalf("Outcome = %v, want Labeled (err %v)", res.Outcome, res.Err)
	}
	if res.String() != "  OSB-380001|'OSB-380001'" {
		t.Errorf("label = %q", res.String())
	}
}

func TestRuleApplyNeverFails(t *testing.T) {
	// more placeholders than capture groups
	rule := Rule{Pattern: regexp.MustCompile(`ErrMsg=([A-Z_]+)`), Template: "{1}-{2}-{3}"}
	res := rule.Classify("ErrMsg=BAD_THING happened")
	if res.Outcome != Unresolvable {
		t.Fatalf("Outcome = %v, want Unresolvable", res.Outcome)
	}
	if res.String() != Sentinel {
		t.Errorf("String() = %q, want %q", res.String(), Sentinel)
	}
	if res.Err == nil {
		t.Error("Unresolvable result should carry the template error")
	}

	// no groups at all, bad syntax
	for _, tmpl := range []string{"{", "}", "{x}", "{}{1}", "{0!x}", "{0:=8}"} {
		r := Rule{Pattern: regexp.MustCompile(`boom`), Template: tmpl}
		if got := r.Classify("boom").String(); got != Sentinel {
			t.Errorf("template %q: label = %q, want sentinel", tmpl, got)
		}
	}

	// empty match slice must not panic
	if got := rule.Apply(nil); got.Outcome != Unresolvable {
		t.Errorf("Apply(nil) = %+v", got)
	}
}

func TestRuleApplyUnmatchedGroupIsEmpty(t *testing.T) {
	rule := Rule{Pattern: regexp.MustCompile(`code=(\d+)(?: detail=(\w+))?`), Template: "{1}/{2}"}
	if got := rule.Classify("code=7").String(); got != "7/" {
		t.Errorf("label = %q, want %q", got, "7/")
	}
}

var parsers = []config.ParserConfig{
	{
		Sets: []string{"osb"},
		Rules: []config.RuleConfig{
			{Pattern: `ErrMsg=([A-Z_0-9]+)`, Label: "{1}"},
		},
	},
	{
		Sets: []string{"soa", "bpel"},
		Rules: []config.RuleConfig{
			{Pattern: `(SBL-DAT-[0-9]+)`, Label: "{1}"},
			{Pattern: `(SBL-EAI-[0-9]+)`, Label: "eai:{1}"},
		},
	},
	{
		Sets: []string{"osb", "soa"},
		Rules: []config.RuleConfig{
			{Pattern: `(SBL-[A-Z]+-[0-9]+)`, Label: "siebel:{1}"},
			{Pattern: `timeout`, Label: "{5}"},
		},
	},
}

func patterns(c *Classifier) []string {
	var out []string
	for _, r := range c.Rules() {
		out = append(out, r.Pattern.String())
	}
	return out
}

func TestCompileSelectsBySet(t *testing.T) {
	tests := []struct {
		name      string
		requested []string
		want      []string
	}{
		{
			name:      "osb",
			requested: []string{"osb"},
			want:      []string{`ErrMsg=([A-Z_0-9]+)`, `(SBL-[A-Z]+-[0-9]+)`, `timeout`},
		},
		{
			name:      "osb and bpel keep definition order",
			requested: []string{"bpel", "osb"},
			want: []string{
				`ErrMsg=([A-Z_0-9]+)`, `(SBL-DAT-[0-9]+)`, `(SBL-EAI-[0-9]+)`,
				`(SBL-[A-Z]+-[0-9]+)`, `timeout`,
			},
		},
		{
			name:      "unknown set",
			requested: []string{"mft"},
			want:      nil,
		},
		{
			name:      "nothing requested",
			requested: nil,
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Compile(parsers, tt.requested)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, patterns(c)); diff != "" {
				t.Errorf("rules mismatch (-want +got):\n%s", diff)
			}
			if c.Len() != len(tt.want) {
				t.Errorf("Len() = %d, want %d", c.Len(), len(tt.want))
			}
		})
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	a, err := Compile(parsers, []string{"soa", "osb"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Compile(parsers, []string{"soa", "osb"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(patterns(a), patterns(b)); diff != "" {
		t.Errorf("non-deterministic compile:\n%s", diff)
	}
}

func TestCompileInvalidPattern(t *testing.T) {
	defs := []config.ParserConfig{{
		Sets:  []string{"osb"},
		Rules: []config.RuleConfig{{Pattern: `([unclosed`, Label: "{1}"}},
	}}
	_, err := Compile(defs, []string{"osb"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parsers[0].rules[0]") {
		t.Errorf("error %q should locate the rule", err)
	}

	// inactive rules are not compiled
	if _, err := Compile(defs, []string{"soa"}); err != nil {
		t.Errorf("inactive invalid rule should be ignored: %v", err)
	}
}

func TestClassifierFirstMatchWins(t *testing.T) {
	c, err := Compile(parsers, []string{"osb", "soa"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		text    string
		want    string
		matched bool
	}{
		// both SBL-DAT and the generic SBL rule match; SBL-DAT is declared first
		{"failed with SBL-DAT-00123", "SBL-DAT-00123", true},
		{"EAI said SBL-EAI-04308", "eai:SBL-EAI-04308", true},
		{"ErrMsg=PIN_ERR_NOT_FOUND and SBL-DAT-1", "PIN_ERR_NOT_FOUND", true},
		{"SBL-BCR-1 rejected", "siebel:SBL-BCR-1", true},
		{"read timeout on socket", Sentinel, true},
		{"plain failure", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := c.Label(tt.text)
			if ok != tt.matched || got != tt.want {
				t.Errorf("Label(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.matched)
			}
		})
	}
}

func TestNilClassifier(t *testing.T) {
	var c *Classifier
	if _, ok := c.Label("anything"); ok {
		t.Error("nil classifier should not match")
	}
	if c.Len() != 0 || c.Rules() != nil {
		t.Error("nil classifier should be empty")
	}
}
