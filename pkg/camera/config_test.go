package camera

import "testing"

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "accelerated preset valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "negative device index",
			mutate:  func(c *Config) { c.DeviceIndex = -1 },
			wantErr: true,
		},
		{
			name:    "width too small",
			mutate:  func(c *Config) { c.Width = 80 },
			wantErr: true,
		},
		{
			name:    "framerate zero",
			mutate:  func(c *Config) { c.Framerate = 0 },
			wantErr: true,
		},
		{
			name:    "quality out of range",
			mutate:  func(c *Config) { c.Quality = 101 },
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := AcceleratedConfig()
			tc.mutate(&cfg)
			errs := cfg.Validate()
			if tc.wantErr && len(errs) == 0 {
				t.Error("expected validation errors, got none")
			}
			if !tc.wantErr && len(errs) > 0 {
				t.Errorf("expected valid config, got %v", errs)
			}
		})
	}
}

func TestPresets(t *testing.T) {
	acc := AcceleratedConfig()
	fb := FallbackConfig()

	// The accelerated path asks for more pixels and a faster cadence
	if acc.Width <= fb.Width || acc.Height <= fb.Height {
		t.Errorf("accelerated resolution %dx%d should exceed fallback %dx%d",
			acc.Width, acc.Height, fb.Width, fb.Height)
	}
	if acc.Framerate <= fb.Framerate {
		t.Errorf("accelerated framerate %d should exceed fallback %d",
			acc.Framerate, fb.Framerate)
	}

	if errs := acc.Validate(); len(errs) > 0 {
		t.Errorf("accelerated preset invalid: %v", errs)
	}
	if errs := fb.Validate(); len(errs) > 0 {
		t.Errorf("fallback preset invalid: %v", errs)
	}
}

func TestManager_UpdateConfig(t *testing.T) {
	m := NewManager(FallbackConfig())

	var applied *Config
	m.OnConfigChange = func(cfg Config) error {
		applied = &cfg
		return nil
	}

	err := m.UpdateConfig(map[string]interface{}{
		"width":  float64(1280), // JSON numbers arrive as float64
		"height": float64(720),
	})
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}

	got := m.GetConfig()
	if got.Width != 1280 || got.Height != 720 {
		t.Errorf("config not updated: %dx%d", got.Width, got.Height)
	}
	if applied == nil {
		t.Error("OnConfigChange was not invoked")
	}
}

func TestManager_RejectsInvalid(t *testing.T) {
	m := NewManager(FallbackConfig())
	before := m.GetConfig()

	if err := m.UpdateConfig(map[string]interface{}{"width": 10}); err == nil {
		t.Error("expected validation error for width=10")
	}

	if m.GetConfig() != before {
		t.Error("invalid update must not change the stored config")
	}
}

func TestConfig_FallbackTier(t *testing.T) {
	fb := FallbackConfig()

	tests := []struct {
		name string
		in   Config
		want Config
	}{
		{
			name: "high config capped at fallback preset",
			in:   Config{DeviceIndex: 2, Width: 1920, Height: 1080, Framerate: 60, Quality: 95},
			want: Config{DeviceIndex: 2, Width: fb.Width, Height: fb.Height, Framerate: fb.Framerate, Quality: fb.Quality},
		},
		{
			name: "low config kept as-is",
			in:   Config{DeviceIndex: 0, Width: 320, Height: 240, Framerate: 10, Quality: 50},
			want: Config{DeviceIndex: 0, Width: 320, Height: 240, Framerate: 10, Quality: 50},
		},
		{
			name: "mixed caps per field",
			in:   Config{DeviceIndex: 1, Width: 1280, Height: 240, Framerate: 10, Quality: 90},
			want: Config{DeviceIndex: 1, Width: fb.Width, Height: 240, Framerate: 10, Quality: fb.Quality},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.FallbackTier(); got != tt.want {
				t.Errorf("FallbackTier() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
