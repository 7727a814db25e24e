// Package tui implements the live, full-screen scan view of tvdiscovery.
//
// Built on Bubble Tea, it follows the Elm architecture: ScanModel holds all
// state, Update returns a new model plus commands, and View is a pure
// function of the model.
//
// # Screen Flow
//
//  1. Init starts a scan through the configured ScanFunc (normally
//     discovery.Scanner.Stream).
//  2. Each device the engine delivers arrives as a message and is appended
//     to the list immediately, so TVs show up while the scan is running.
//  3. The progress bar fills against the scan ceiling. When the engine
//     reports the scan finished, the title switches to a summary.
//  4. r rescans (the running scan is cancelled and its late events are
//     dropped), / filters the list, enter selects a device and exits.
//
// # Framework Components
//
//   - bubbles/spinner: Scanning indicator
//   - bubbles/progress: Scan ceiling progress
//   - bubbles/list: Device list with filtering
//   - bubbles/help and bubbles/key: Context help in the footer
//   - lipgloss: Styling and layout
//
// Every frame is wrapped by RenderApplicationContainer, which draws the
// application header and pins the help text to the bottom.
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	device, err := tui.Run(tui.Config{
//	    Scan:         scanner.Stream,
//	    Timeout:      scanner.Timing.ScanTimeout,
//	    ServiceTypes: scanner.ServiceTypes,
//	})
package tui
