package detect

// EmailProvider matches MX exchange hostnames against the email provider
// patterns and returns one Detection per unique (provider, evidence) pair,
// in input order.
func (d *Detector) EmailProvider(mxHosts []string) []Detection {
	var detections []Detection
	seen := map[string]bool{}
	for _, host := range mxHosts {
		for _, p := range d.email {
			if !matchSuffix(host, p.Suffix) {
				continue
			}
			key := p.Provider + ":" + host
			if seen[key] {
				continue
			}
			seen[key] = true
			detections = append(detections, Detection{
				Type:     TypeEmail,
				Provider: p.Provider,
				Evidence: host,
				Source:   "mx",
			})
		}
	}
	return detections
}
