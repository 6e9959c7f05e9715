package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"tallycart-backend/cart"

	"github.com/joho/godotenv"
)

func LoadEnv() error {
	// Try to load .env file if it exists (for local development).
	// In production, environment variables are set directly.
	err := godotenv.Load()
	if err != nil {
		// .env file not found is not an error - it might be on production
		// Environment variables are already available in os.Getenv()
		return nil
	}
	return nil
}

// ValidateEnv checks that critical environment variables are set.
// Returns an error if any critical variable is missing.
func ValidateEnv() error {
	var missing []string

	// Critical variables - application cannot function without these
	if os.Getenv("JWT_SECRET") == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if os.Getenv("DATABASE_URL") == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return fmt.Errorf("critical environment variables not set: %v", missing)
	}

	// Non-critical variables - log warnings but don't fail
	if os.Getenv("FRONTEND_URL") == "" {
		log.Println("WARNING: FRONTEND_URL not set - CORS may not work correctly")
	}

	return nil
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("WARNING: %s=%q is not a boolean, using default %t", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func GetEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("WARNING: %s=%q is not a number, using default %g", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// CartConfig resolves the cart-wide configuration from the environment on
// top of the stock defaults.
func CartConfig() cart.Config {
	cfg := cart.DefaultConfig()

	cfg.DefaultTaxRate = GetEnvFloat("CART_TAX_RATE", cfg.DefaultTaxRate)
	cfg.DefaultTaxIncluded = GetEnvBool("CART_TAX_INCLUDED", cfg.DefaultTaxIncluded)
	cfg.AllowDuplicateIdentity = GetEnvBool("CART_ALLOW_DUPLICATES", cfg.AllowDuplicateIdentity)
	cfg.DestroyOnLogout = GetEnvBool("CART_DESTROY_ON_LOGOUT", cfg.DestroyOnLogout)
	cfg.DiscountsOnFees = GetEnvBool("CART_DISCOUNTS_ON_FEES", cfg.DiscountsOnFees)
	cfg.Format.DecimalPoint = GetEnv("CART_DECIMAL_POINT", cfg.Format.DecimalPoint)
	cfg.Format.ThousandSep = GetEnv("CART_THOUSAND_SEPARATOR", cfg.Format.ThousandSep)

	return cfg
}

// CartTableName is the durable store table for named cart snapshots.
func CartTableName() string {
	return GetEnv("CART_TABLE", "stored_carts")
}
