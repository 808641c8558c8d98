// Package config handles loading and validating the ShodaiEV site service
// configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (SHODAIEV_*, plus legacy names)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The admin password and session secret should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - Prefer security.admin.password_hash (Argon2id) over a plain password
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Store.Backend)
package config
