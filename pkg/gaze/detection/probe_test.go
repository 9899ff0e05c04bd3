package detection

import (
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		renderer     string
		approximated bool
		capable      bool
	}{
		{
			name:     "modern discrete GPU",
			renderer: "NVIDIA GeForce RTX 3060",
			capable:  true,
		},
		{
			name:     "software rasterizer rejected",
			renderer: "Google SwiftShader",
			capable:  false,
		},
		{
			name:     "llvmpipe rejected",
			renderer: "Mesa llvmpipe (LLVM 15.0.7, 256 bits)",
			capable:  false,
		},
		{
			name:     "basic render driver rejected",
			renderer: "Microsoft Basic Render Driver",
			capable:  false,
		},
		{
			name:     "legacy intel rejected",
			renderer: "Intel(R) HD Graphics 3000",
			capable:  false,
		},
		{
			name:     "legacy mali rejected",
			renderer: "Mali-400 MP",
			capable:  false,
		},
		{
			name:     "modern intel accepted",
			renderer: "Intel(R) Iris(R) Xe Graphics",
			capable:  true,
		},
		{
			name:         "approximated name skips caution list",
			renderer:     "Mali-450",
			approximated: true,
			capable:      true,
		},
		{
			name:         "deny list still applies under approximation",
			renderer:     "SwiftShader Device (Subzero)",
			approximated: true,
			capable:      false,
		},
		{
			name:         "generic approximated name accepted",
			renderer:     approximatedRenderer,
			approximated: true,
			capable:      true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := classify(tc.renderer, tc.approximated)
			if v.CanUseAccelerated != tc.capable {
				t.Errorf("classify(%q, approximated=%v): capable=%v, want %v (reason: %s)",
					tc.renderer, tc.approximated, v.CanUseAccelerated, tc.capable, v.Reason)
			}
			if v.Renderer != tc.renderer {
				t.Errorf("Verdict should carry the renderer name back, got %q", v.Renderer)
			}
		})
	}
}

func TestClassify_ReasonSet(t *testing.T) {
	v := classify("Google SwiftShader", false)
	if v.Reason != "software rasterizer" {
		t.Errorf("Expected deny-list reason, got %q", v.Reason)
	}

	v = classify("Intel(R) HD Graphics 2000", false)
	if v.Reason != "legacy or low-power GPU" {
		t.Errorf("Expected caution-list reason, got %q", v.Reason)
	}
}
