package epub

import "encoding/xml"

const nsContainer = "urn:oasis:names:tc:opendocument:xmlns:container"

// container.xml structure
type container struct {
	XMLName   xml.Name `xml:"container"`
	Version   string   `xml:"version,attr"`
	Xmlns     string   `xml:"xmlns,attr"`
	Rootfiles struct {
		Rootfile []rootfile `xml:"rootfile"`
	} `xml:"rootfiles"`
}

type rootfile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// ContainerXML returns META-INF/container.xml pointing at opfPath.
func ContainerXML(opfPath string) ([]byte, error) {
	c := container{Version: "1.0", Xmlns: nsContainer}
	c.Rootfiles.Rootfile = []rootfile{{FullPath: opfPath, MediaType: MediaTypeOPF}}
	return marshalDocument(c)
}
