package detection

import (
	"os/exec"
	"regexp"
	"strings"
)

// Verdict is the result of probing the host's acceleration stack.
// Computed once per tracking session and immutable afterwards.
type Verdict struct {
	CanUseAccelerated bool
	Renderer          string
	Reason            string
}

// approximatedRenderer is reported when the host refuses to identify its
// GPU. The name cannot be trusted to reflect real hardware, so only the
// deny list applies to it.
const approximatedRenderer = "unknown (approximated)"

// denyList matches known software rasterizers. These are rejected
// unconditionally, even behind an approximated name.
var denyList = []*regexp.Regexp{
	regexp.MustCompile(`swiftshader`),
	regexp.MustCompile(`llvmpipe`),
	regexp.MustCompile(`softpipe`),
	regexp.MustCompile(`software rasterizer`),
	regexp.MustCompile(`microsoft basic render`),
	regexp.MustCompile(`mesa offscreen`),
}

// cautionList matches legacy or low-power GPU families that pass
// initialization but cannot sustain real-time inference.
var cautionList = []*regexp.Regexp{
	regexp.MustCompile(`intel\(r\) (hd )?graphics [23]\d{3}\b`),
	regexp.MustCompile(`\bgma\b`),
	regexp.MustCompile(`mali-4\d{2}`),
	regexp.MustCompile(`adreno \(tm\) [23]\d{2}\b`),
	regexp.MustCompile(`geforce (fx|[67]\d{3}\b)`),
	regexp.MustCompile(`radeon x\d{3,4}\b`),
}

// Probe inspects the host graphics stack once and classifies it.
// Any transient resources (probe subprocesses) are finished before return,
// so nothing is left open when the engine initializes its own context.
func Probe() Verdict {
	renderer, approximated, found := rendererName()
	if !found {
		return Verdict{
			CanUseAccelerated: false,
			Renderer:          "",
			Reason:            "no acceleration available",
		}
	}
	return classify(renderer, approximated)
}

// rendererName discovers the GPU identification string.
// Returns the name, whether it is a privacy-approximated generic string,
// and whether any renderer was found at all.
func rendererName() (name string, approximated, found bool) {
	// Preferred: the driver reports the exact device name
	if out, err := exec.Command("nvidia-smi", "--query-gpu=name", "--format=csv,noheader").Output(); err == nil {
		if n := firstLine(string(out)); n != "" {
			return n, false, true
		}
	}
	// Retry through the list form; some drivers reject the query flags
	// while the device itself is perfectly capable
	if out, err := exec.Command("nvidia-smi", "-L").Output(); err == nil {
		if n := firstLine(string(out)); n != "" {
			return n, false, true
		}
	}

	out, err := exec.Command("lspci").Output()
	if err != nil {
		// Cannot enumerate devices at all (sandboxed host). Proceed with
		// a generic name rather than rejecting capable hardware.
		return approximatedRenderer, true, true
	}

	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "VGA compatible controller") &&
			!strings.Contains(line, "3D controller") {
			continue
		}
		if i := strings.Index(line, ": "); i >= 0 {
			return strings.TrimSpace(line[i+2:]), false, true
		}
	}

	return "", false, false
}

// classify applies the deny and caution lists to a renderer name
func classify(renderer string, approximated bool) Verdict {
	name := strings.ToLower(renderer)

	for _, re := range denyList {
		if re.MatchString(name) {
			return Verdict{
				CanUseAccelerated: false,
				Renderer:          renderer,
				Reason:            "software rasterizer",
			}
		}
	}

	// An approximated name says nothing about the real hardware, so the
	// caution list is skipped for it
	if !approximated {
		for _, re := range cautionList {
			if re.MatchString(name) {
				return Verdict{
					CanUseAccelerated: false,
					Renderer:          renderer,
					Reason:            "legacy or low-power GPU",
				}
			}
		}
	}

	return Verdict{
		CanUseAccelerated: true,
		Renderer:          renderer,
		Reason:            "ok",
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
