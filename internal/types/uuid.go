package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

const (
	UUID_PREFIX_PAYMENT            = "pay"
	UUID_PREFIX_ORDER              = "ord"
	UUID_PREFIX_WEBHOOK_EVENT      = "wevt"
	UUID_PREFIX_SUBSCRIPTION       = "subs"
	UUID_PREFIX_SUBSCRIPTION_EVENT = "subevt"
	UUID_PREFIX_PLAN               = "plan"
	UUID_PREFIX_REGION             = "region"
	UUID_PREFIX_COUPON             = "coupon"
	UUID_PREFIX_GATEWAY_CONFIG     = "gwc"
	UUID_PREFIX_REQUEST            = "req"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// prefixed with the entity short code, ex pay_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}
