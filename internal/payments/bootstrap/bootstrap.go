// Package bootstrap builds the payment provider registry from configuration.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/angelmondragon/flashback-frames-backend/internal/payments"
	"github.com/angelmondragon/flashback-frames-backend/internal/payments/phonepe"
	"github.com/angelmondragon/flashback-frames-backend/internal/payments/razorpay"
	"github.com/angelmondragon/flashback-frames-backend/pkg/config"
	"github.com/angelmondragon/flashback-frames-backend/pkg/logger"
)

// Providers registers every gateway whose credentials are configured. A
// missing gateway is not an error; its checkout path answers 503.
func Providers(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*payments.Registry, error) {
	registry := payments.NewRegistry()

	if cfg.Razorpay.Enabled() {
		client, err := razorpay.New(cfg.Razorpay, razorpay.WithTimeout(cfg.Checkout.GatewayTimeout))
		if err != nil {
			return nil, fmt.Errorf("razorpay: %w", err)
		}
		registry.Register(client)
	} else if logg != nil {
		logg.Warn(ctx, "razorpay credentials missing, hosted checkout disabled")
	}

	if cfg.PhonePe.Enabled() {
		client, err := phonepe.New(cfg.PhonePe, phonepe.WithTimeout(cfg.Checkout.GatewayTimeout))
		if err != nil {
			return nil, fmt.Errorf("phonepe: %w", err)
		}
		registry.Register(client)
	} else if logg != nil {
		logg.Warn(ctx, "phonepe credentials missing, redirect checkout disabled")
	}

	return registry, nil
}
