package dividends

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"assetnode/internal/assets"
)

const (
	tagAssetName     = "asset_name"
	tagDividendAsset = "dividend_asset"
)

// CreateRequest is the input of createdividendsdatabase.
type CreateRequest struct {
	AssetName   string `json:"asset_name" validate:"required,asset_name,dividend_asset"`
	BlockHeight int64  `json:"block_height" validate:"gte=0"`
}

// GetRequest is the input of getdividenddatabase.
type GetRequest struct {
	BlockHeight int64 `json:"block_height" validate:"gte=0"`
}

type rule struct {
	tag string
	fn  validator.Func
}

var requestRules = []rule{
	{tagAssetName, func(fl validator.FieldLevel) bool { return assets.Valid(fl.Field().String()) }},
	{tagDividendAsset, func(fl validator.FieldLevel) bool { return dividendEligible(fl.Field().String()) }},
}

// newValidator panics if a request rule cannot be registered.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if idx := strings.Index(tag, ","); idx >= 0 {
			tag = tag[:idx]
		}
		if tag == "" || tag == "-" {
			return fld.Name
		}
		return tag
	})
	if err := registerRules(v, requestRules); err != nil {
		panic(err)
	}
	return v
}

func registerRules(v *validator.Validate, rules []rule) error {
	for _, r := range rules {
		if err := v.RegisterValidation(r.tag, r.fn); err != nil {
			return fmt.Errorf("register %q validation: %w", r.tag, err)
		}
	}
	return nil
}

// dividendEligible rejects asset types that cannot carry a holder snapshot.
func dividendEligible(name string) bool {
	typ, err := assets.Classify(name)
	if err != nil {
		return false
	}
	switch typ {
	case assets.Unique, assets.Owner, assets.MsgChannel:
		return false
	default:
		return true
	}
}

// requestErrorFor maps the first validation failure onto a caller message.
func requestErrorFor(err error) *RequestError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return newRequestError(CodeMiscError, err.Error(), err)
	}
	fe := verrs[0]
	switch fe.Field() {
	case "asset_name":
		if fe.Tag() == tagDividendAsset {
			return newRequestError(CodeInvalidParameter, msgAssetTypeForbidden, err)
		}
		return newRequestError(CodeInvalidParameter, msgInvalidAssetName, err)
	case "block_height":
		return newRequestError(CodeInvalidParameter, msgNegativeHeight, err)
	default:
		return newRequestError(CodeInvalidParameter, fe.Error(), err)
	}
}
