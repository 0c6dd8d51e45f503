package validations

import (
	"context"

	domainCache "github.com/AzielCF/az-shield/domains/cache"
	domainRateLimit "github.com/AzielCF/az-shield/domains/ratelimit"
	pkgError "github.com/AzielCF/az-shield/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

func ValidateCacheSettings(ctx context.Context, request domainCache.Settings) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.ResponsesTTLSeconds, validation.Min(0)),
		validation.Field(&request.ResponsesMaxSize, validation.Min(0)),
		validation.Field(&request.SearchesTTLSeconds, validation.Min(0)),
		validation.Field(&request.SearchesMaxSize, validation.Min(0)),
		validation.Field(&request.EmbeddingsTTLSeconds, validation.Min(0)),
		validation.Field(&request.EmbeddingsMaxSize, validation.Min(0)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateRateLimitSettings(ctx context.Context, request domainRateLimit.Settings) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.GlobalLimit, validation.Min(0)),
		validation.Field(&request.GlobalWindowSeconds, validation.Min(0)),
		validation.Field(&request.CustomerLimit, validation.Min(0)),
		validation.Field(&request.CustomerWindowSeconds, validation.Min(0)),
		validation.Field(&request.OwnerLimit, validation.Min(0)),
		validation.Field(&request.OwnerWindowSeconds, validation.Min(0)),
		validation.Field(&request.MediaUploadLimit, validation.Min(0)),
		validation.Field(&request.MediaUploadWindowSeconds, validation.Min(0)),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}

func ValidateInvalidateScope(ctx context.Context, request domainCache.InvalidateScopeRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.ScopeID, validation.Required),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
