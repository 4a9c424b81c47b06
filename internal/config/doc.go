// Package config provides centralized configuration management for the
// neurphys tools and service.
//
// Configuration is loaded from environment variables with the NEURPHYS_
// prefix, optionally merged with a neurphys.yaml file placed next to the
// executable. Environment variables take precedence.
//
// The package also owns the canonical directory layout (see Paths): raw
// instrument files under data/, generated tables under reports/, rendered
// figures under figures/. Every binary resolves these against its own
// executable location so behavior does not depend on the working directory.
package config
