package fanray

import (
	"encoding/xml"

	"github.com/labstack/echo/v4"
)

// Really Simple Discovery: the document desktop publishing clients fetch to
// find the XML-RPC endpoint and which API it speaks.

type rsdDoc struct {
	XMLName xml.Name   `xml:"rsd"`
	Version string     `xml:"version,attr"`
	XMLNS   string     `xml:"xmlns,attr"`
	Service rsdService `xml:"service"`
}

type rsdService struct {
	EngineName   string   `xml:"engineName"`
	EngineLink   string   `xml:"engineLink"`
	HomePageLink string   `xml:"homePageLink"`
	APIs         []rsdAPI `xml:"apis>api"`
}

type rsdAPI struct {
	Name      string `xml:"name,attr"`
	Preferred string `xml:"preferred,attr"`
	APILink   string `xml:"apiLink,attr"`
	BlogID    string `xml:"blogID,attr"`
}

func (a *App) renderRSD(c echo.Context) error {
	doc := rsdDoc{
		Version: "1.0",
		XMLNS:   "http://archipelago.phrasewise.com/rsd",
		Service: rsdService{
			EngineName:   "fanray",
			EngineLink:   a.Config.URL,
			HomePageLink: a.Config.URL,
			APIs: []rsdAPI{{
				Name:      "MetaWeblog",
				Preferred: "true",
				APILink:   BuildURL(a.Config.URL, "olw"),
				BlogID:    "1",
			}},
		},
	}
	return writeXML(c, "application/rsd+xml; charset=utf-8", doc)
}
