// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package unbox

import (
	"errors"
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	if cfg.MaxFiles() != 100000 {
		t.Errorf("MaxFiles() = %d", cfg.MaxFiles())
	}
	if cfg.MaxExtractionSize() != 1<<30 {
		t.Errorf("MaxExtractionSize() = %d", cfg.MaxExtractionSize())
	}
	if cfg.MaxInputSize() != 1<<30 {
		t.Errorf("MaxInputSize() = %d", cfg.MaxInputSize())
	}
	if cfg.Workers() != 1 {
		t.Errorf("Workers() = %d", cfg.Workers())
	}
	if cfg.Overwrite() || cfg.CreateDestination() || cfg.DenySymlinkExtraction() {
		t.Error("boolean options must default to off")
	}
	if cfg.Format() != FormatUnknown {
		t.Errorf("Format() = %v, want no forced format", cfg.Format())
	}
	if cfg.Logger() == nil {
		t.Error("default logger must not be nil")
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := NewConfig(
		WithMaxFiles(7),
		WithOverwrite(true),
		WithWorkers(8),
		WithFormat(FormatZip),
	)
	if cfg.MaxFiles() != 7 || !cfg.Overwrite() || cfg.Workers() != 8 || cfg.Format() != FormatZip {
		t.Error("options were not applied")
	}
}

func TestCheckMaxFiles(t *testing.T) {
	cfg := NewConfig(WithMaxFiles(3))
	if err := cfg.CheckMaxFiles(3); err != nil {
		t.Errorf("CheckMaxFiles(3) = %v, want nil", err)
	}
	if err := cfg.CheckMaxFiles(4); !errors.Is(err, ErrMaxFilesExceeded) {
		t.Errorf("CheckMaxFiles(4) = %v, want %v", err, ErrMaxFilesExceeded)
	}

	disabled := NewConfig(WithMaxFiles(-1))
	if err := disabled.CheckMaxFiles(1 << 40); err != nil {
		t.Errorf("CheckMaxFiles() with disabled limit = %v", err)
	}
}

func TestCheckExtractionSize(t *testing.T) {
	cfg := NewConfig(WithMaxExtractionSize(100))
	if err := cfg.CheckExtractionSize(100); err != nil {
		t.Errorf("CheckExtractionSize(100) = %v, want nil", err)
	}
	if err := cfg.CheckExtractionSize(101); !errors.Is(err, ErrMaxExtractionSizeExceeded) {
		t.Errorf("CheckExtractionSize(101) = %v, want %v", err, ErrMaxExtractionSizeExceeded)
	}
}
