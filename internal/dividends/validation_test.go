package dividends

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestRegisterRulesReportsFailure(t *testing.T) {
	accept := func(validator.FieldLevel) bool { return true }
	tests := []struct {
		name  string
		rules []rule
	}{
		{"empty tag", []rule{{tag: "", fn: accept}}},
		{"nil func", []rule{{tag: tagAssetName, fn: nil}}},
		{"later rule", []rule{{tag: tagAssetName, fn: accept}, {tag: "", fn: accept}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := registerRules(validator.New(), tc.rules)
			if err == nil {
				t.Fatal("expected registration error")
			}
			if !strings.Contains(err.Error(), "validation") {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

func TestNewValidatorAppliesRequestRules(t *testing.T) {
	v := newValidator()
	if err := v.Struct(CreateRequest{AssetName: "GOLD", BlockHeight: 10}); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
	err := v.Struct(CreateRequest{AssetName: "gold", BlockHeight: 10})
	if err == nil {
		t.Fatal("expected invalid asset name to fail")
	}
	if got := requestErrorFor(err).Message; got != msgInvalidAssetName {
		t.Fatalf("unexpected message %q", got)
	}
	err = v.Struct(CreateRequest{AssetName: "GOLD!", BlockHeight: 10})
	if err == nil {
		t.Fatal("expected owner asset to fail")
	}
	if got := requestErrorFor(err).Message; got != msgAssetTypeForbidden {
		t.Fatalf("unexpected message %q", got)
	}
}
