package emotion

import (
	"errors"
	"math"
	"testing"
)

func TestParseLabel(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Label
		ok   bool
	}{
		{"anger", Anger, true},
		{" Happiness ", Happiness, true},
		{"SURPRISE", Surprise, true},
		{"joy", "", false},
		{"", "", false},
	} {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLabel(tt.in)
			if tt.ok {
				if err != nil {
					t.Fatalf("ParseLabel(%q): %v", tt.in, err)
				}
				if got != tt.want {
					t.Errorf("got %q, want %q", got, tt.want)
				}
				return
			}
			if !errors.Is(err, ErrInvalidLabel) {
				t.Errorf("err = %v, want ErrInvalidLabel", err)
			}
		})
	}
}

func TestNormalizeSingleLabel(t *testing.T) {
	d, err := Normalize(map[Label]float64{Neutral: 0.9})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Validate(DefaultTolerance); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	for _, s := range d {
		want := 0.0
		if s.Label == Neutral {
			want = 1.0
		}
		if s.Confidence != want {
			t.Errorf("%s = %v, want %v", s.Label, s.Confidence, want)
		}
	}
}

func TestNormalizeRescales(t *testing.T) {
	d, err := Normalize(map[Label]float64{Anger: 0.2, Sadness: 0.6})
	if err != nil {
		t.Fatal(err)
	}
	if got := d.Get(Anger); math.Abs(got-0.25) > 1e-9 {
		t.Errorf("anger = %v, want 0.25", got)
	}
	if got := d.Get(Sadness); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("sadness = %v, want 0.75", got)
	}
	if len(d) != len(Labels) {
		t.Fatalf("len = %d, want %d", len(d), len(Labels))
	}
	for i, s := range d {
		if s.Label != Labels[i] {
			t.Errorf("position %d = %s, want %s", i, s.Label, Labels[i])
		}
	}
}

func TestNormalizeRejects(t *testing.T) {
	for name, raw := range map[string]map[Label]float64{
		"empty":    {},
		"zero":     {Fear: 0},
		"negative": {Fear: -0.1, Anger: 1},
		"nan":      {Fear: math.NaN()},
		"inf":      {Fear: math.Inf(1)},
		"overflow": {Sadness: 1e308, Happiness: 1e308},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Normalize(raw); !errors.Is(err, ErrInvalidDistribution) {
				t.Errorf("err = %v, want ErrInvalidDistribution", err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	good := FromConfidences(0.1, 0.1, 0.1, 0.4, 0.1, 0.1, 0.1)
	if err := good.Validate(DefaultTolerance); err != nil {
		t.Fatalf("valid distribution rejected: %v", err)
	}

	dup := good.Clone()
	dup[1].Label = Anger

	for name, d := range map[string]Distribution{
		"short":     good[:6],
		"duplicate": dup,
		"sum":       FromConfidences(0.5, 0.5, 0.5),
		"zeros":     FromConfidences(),
		"negative":  FromConfidences(-0.1, 1.1),
	} {
		t.Run(name, func(t *testing.T) {
			if err := d.Validate(DefaultTolerance); !errors.Is(err, ErrInvalidDistribution) {
				t.Errorf("err = %v, want ErrInvalidDistribution", err)
			}
		})
	}
}

func TestValidateTolerance(t *testing.T) {
	d := FromConfidences(0.5, 0.495)
	if err := d.Validate(0.01); err != nil {
		t.Errorf("sum 0.995 rejected at 0.01: %v", err)
	}
	if err := d.Validate(0.001); err == nil {
		t.Error("sum 0.995 accepted at 0.001")
	}
}

func TestDominantTieUsesCanonicalOrder(t *testing.T) {
	d := FromConfidences(0, 0, 0.5, 0, 0, 0.5, 0)
	if got := d.Dominant().Label; got != Fear {
		t.Errorf("Dominant = %s, want fear", got)
	}
}

func TestLanguages(t *testing.T) {
	if len(Languages) != 12 {
		t.Fatalf("got %d languages, want 12", len(Languages))
	}
	for _, lang := range Languages {
		if lang.Name() == "" {
			t.Errorf("%s has no display name", lang)
		}
		for _, l := range Labels {
			if lang.Translate(l) == "" {
				t.Errorf("%s: no translation for %s", lang, l)
			}
		}
	}
	if got := Language("es").Translate(Sadness); got != "Tristeza" {
		t.Errorf("es sadness = %q, want Tristeza", got)
	}
}

func TestParseLanguage(t *testing.T) {
	if got, err := ParseLanguage(""); err != nil || got != DefaultLanguage {
		t.Errorf("ParseLanguage(\"\") = %q, %v", got, err)
	}
	if got, err := ParseLanguage("JA"); err != nil || got != "ja" {
		t.Errorf("ParseLanguage(JA) = %q, %v", got, err)
	}
	if _, err := ParseLanguage("xx"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("err = %v, want ErrUnsupportedLanguage", err)
	}
}
