// Package discovery finds streaming devices (smart TVs, cast receivers) on the
// local network using multicast DNS service discovery.
//
// # Discovery Process
//
// An Engine runs one scan session at a time:
//  1. Queries the first configured service type in the "local." domain
//  2. Every retry interval, cancels the running query and queries the next
//     service type, wrapping back to the first one after the last
//  3. Resolves each newly seen advertisement to a host address
//  4. Reports the device's name and numeric IP after a short settle delay
//  5. Ends the session on the first rotation tick at or past the scan timeout
//     and calls the finished handler
//
// Stop ends a session without calling the finished handler. Results that
// arrive for a stopped or replaced session are discarded.
//
// # Usage Example
//
//	browser := discovery.NewZeroconfBrowser()
//	defer browser.Close()
//
//	engine := discovery.NewEngine(browser, []string{"_airplay._tcp", "_googlecast._tcp"})
//	defer engine.Close()
//
//	engine.OnDeviceDiscovered(func(name, ip string) {
//	    fmt.Printf("Found: %s at %s\n", name, ip)
//	})
//	engine.OnScanFinished(func() {
//	    fmt.Println("Scan finished")
//	})
//	engine.Start()
//
// The Scanner type wraps an Engine for callers that want a blocking call:
//
//	scanner := discovery.NewScanner("_airplay._tcp")
//	scanner.Timing = scanner.Timing.WithScanTimeout(3 * time.Second)
//	devices, err := scanner.ScanForDevices()
//
// # Concurrency
//
// Handlers are called from the engine's own goroutine, never concurrently
// with each other. They may call Start and Stop; they must not call Close.
//
// # Network Requirements
//
//   - Host must be on the same network segment as the devices
//   - Multicast traffic must be allowed (UDP port 5353)
//   - Some corporate networks block mDNS traffic
package discovery
