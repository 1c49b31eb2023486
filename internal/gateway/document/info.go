package document

import "encoding/xml"

// TelescopeInfo is the state report of a telescope controller.
type TelescopeInfo struct {
	XMLName xml.Name `xml:"telescope_info"`
	UT      string   `xml:"ut" rpc:"ut"`
	GLST    string   `xml:"glst" rpc:"glst"`
	TRRD    string   `xml:"trrd" rpc:"trrd"`
	TRHD    string   `xml:"trhd" rpc:"trhd"`
	TRGV    string   `xml:"trgv" rpc:"trgv"`
	TRUS    string   `xml:"trus" rpc:"trus"`
	DOPO    string   `xml:"dopo" rpc:"dopo"`
	TRCS    string   `xml:"trcs" rpc:"trcs"`
	FOPO    string   `xml:"fopo" rpc:"fopo"`
	TSRA    string   `xml:"tsra" rpc:"tsra"`
	Object  string   `xml:"object" rpc:"object"`
}

// SpectrographInfo is the state report of a spectrograph controller.
type SpectrographInfo struct {
	XMLName xml.Name `xml:"spectrograph_info"`
	GLST    string   `xml:"glst" rpc:"GLST"`
	SPGP4   string   `xml:"spgp_4" rpc:"SPGP_4"`
	SPGP5   string   `xml:"spgp_5" rpc:"SPGP_5"`
	SPGP13  string   `xml:"spgp_13" rpc:"SPGP_13"`
	SPCE14  string   `xml:"spce_14" rpc:"SPCE_14"`
	SPFE14  string   `xml:"spfe_14" rpc:"SPFE_14"`
	SPCE24  string   `xml:"spce_24" rpc:"SPCE_24"`
	SPFE24  string   `xml:"spfe_24" rpc:"SPFE_24"`
	SPGP22  string   `xml:"spgp_22" rpc:"SPGP_22"`
	SPGS19  string   `xml:"spgs_19" rpc:"SPGS_19"`
	SPGS20  string   `xml:"spgs_20" rpc:"SPGS_20"`
}

// ExposeInfo is the exposure state of a CCD camera controller.
type ExposeInfo struct {
	XMLName      xml.Name `xml:"expose_info"`
	Filename     string   `xml:"filename" rpc:"filename"`
	State        string   `xml:"state" rpc:"state"`
	ElapsedTime  int      `xml:"elapsed_time" rpc:"elapsed_time"`
	FullTime     int      `xml:"full_time" rpc:"full_time"`
	Archive      int      `xml:"archive" rpc:"archive"`
	ExposeNumber int      `xml:"expose_number" rpc:"expose_number"`
	ExposeCount  int      `xml:"expose_count" rpc:"expose_count"`
	Path         string   `xml:"path" rpc:"path"`
	ArchivePath  string   `xml:"archive_path" rpc:"archive_path"`
	Paths        string   `xml:"paths" rpc:"paths"`
	ArchivePaths string   `xml:"archive_paths" rpc:"archive_paths"`
	Instrument   string   `xml:"instrument" rpc:"instrument"`
	CCDTemp      float64  `xml:"ccd_temp" rpc:"ccd_temp"`
}
