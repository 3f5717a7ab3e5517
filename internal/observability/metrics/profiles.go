package metrics

// DocumentValidation records the outcome of validating an uploaded document.
func DocumentValidation(result string) {
	if !enabled {
		return
	}
	documentValidationTotal.WithLabelValues(result).Inc()
}

// NetworkLookup records a single-network lookup.
func NetworkLookup(status string) {
	if !enabled {
		return
	}
	networkLookupTotal.WithLabelValues(status).Inc()
}

// NetworkProbe records a probe of a network endpoint.
func NetworkProbe(network, result string) {
	if !enabled {
		return
	}
	networkProbeTotal.WithLabelValues(network, result).Inc()
}
