package instrumentsim

// Telescope returns a controller answering like a telescope control system.
func Telescope() *Controller {
	c := NewController()
	c.Reply("telescope_info", map[string]any{
		"UT":     "21:04:11.2",
		"GLST":   "13:02:55.0",
		"TRRD":   "004241.4 +411609 2000.0",
		"TRHD":   "-0.731 41.269",
		"TRGV":   "0.000 0.000",
		"TRUS":   "0.000 0.000",
		"DOPO":   "180.00",
		"TRCS":   "0",
		"FOPO":   "31.04",
		"TSRA":   "004241.4 +411609 2000.0",
		"OBJECT": "M31",
	})
	c.Reply("telescope_execute", "1")
	return c
}

// Spectrograph returns a controller answering like a spectrograph controller.
func Spectrograph() *Controller {
	c := NewController()
	c.Reply("spectrograph_info", map[string]any{
		"GLST":    "13:02:55.0",
		"SPGP_4":  "1",
		"SPGP_5":  "2",
		"SPGP_13": "0",
		"SPCE_14": "0",
		"SPFE_14": "1024",
		"SPCE_24": "0",
		"SPFE_24": "2048",
		"SPGP_22": "5",
		"SPGS_19": "1",
		"SPGS_20": "0",
	})
	c.Reply("spectrograph_execute", "1")
	return c
}

// Expose returns a controller answering like a CCD camera controller.
func Expose() *Controller {
	c := NewController()
	c.Reply("expose_info", map[string]any{
		"filename":      "a201610160012.fit",
		"state":         "EXPOSE",
		"elapsed_time":  120,
		"full_time":     600,
		"archive":       1,
		"expose_number": 3,
		"expose_count":  10,
		"path":          "/data/ccd700/",
		"archive_path":  "/archive/ccd700/",
		"paths":         "/data/ccd700/",
		"archive_paths": "/archive/ccd700/",
		"instrument":    "ccd700",
		"ccd_temp":      -119.5,
	})
	c.Reply("expose_start", "OK")
	c.Reply("expose_abort", "OK")
	return c
}

// ForKind returns the preset controller for an instrument kind name.
func ForKind(kind string) (*Controller, bool) {
	switch kind {
	case "telescope":
		return Telescope(), true
	case "spectrograph":
		return Spectrograph(), true
	case "expose":
		return Expose(), true
	default:
		return nil, false
	}
}
