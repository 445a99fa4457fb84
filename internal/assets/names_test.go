package assets_test

import (
	"errors"
	"testing"

	"assetnode/internal/assets"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		want assets.Type
	}{
		{"TOKEN", assets.Root},
		{"MY.TOKEN_2", assets.Root},
		{"TOKEN/SUB", assets.Sub},
		{"TOKEN/SUB/DEEP", assets.Sub},
		{"TOKEN#Serial-001", assets.Unique},
		{"TOKEN/SUB#tag", assets.Unique},
		{"TOKEN~Channel_1", assets.MsgChannel},
		{"TOKEN!", assets.Owner},
		{"TOKEN/SUB!", assets.Owner},
		{"TOKEN^VOTE1", assets.Vote},
		{"#KYC", assets.Qualifier},
		{"#KYC/#US", assets.SubQualifier},
		{"$SECURITY", assets.Restricted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := assets.Classify(tt.name)
			if err != nil {
				t.Fatalf("Classify(%q) returned error: %v", tt.name, err)
			}
			if got != tt.want {
				t.Fatalf("Classify(%q) = %s, want %s", tt.name, got, tt.want)
			}
		})
	}
}

func TestClassifyRejectsInvalidNames(t *testing.T) {
	invalid := []string{
		"",
		"AB",
		"token",
		"RVN",
		"RAVENCOIN",
		".TOKEN",
		"TOKEN_",
		"TO..KEN",
		"TOKEN/",
		"TOKEN/sub",
		"TOKEN~ChannelNameTooLong",
		"TOKEN#bad tag",
		"TOKEN^",
		"#KY",
		"THIS_NAME_IS_DEFINITELY_TOO_LONG_X",
		"TOKEN!!",
	}
	for _, name := range invalid {
		t.Run(name, func(t *testing.T) {
			typ, err := assets.Classify(name)
			if err == nil {
				t.Fatalf("expected %q to be invalid, got %s", name, typ)
			}
			if !errors.Is(err, assets.ErrInvalidName) {
				t.Fatalf("expected ErrInvalidName, got %v", err)
			}
			if assets.Valid(name) {
				t.Fatalf("Valid(%q) should be false", name)
			}
		})
	}
}
