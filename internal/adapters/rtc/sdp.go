package rtc

import (
	"fmt"

	"github.com/pion/sdp/v3"
)

var directions = []string{"sendrecv", "sendonly", "recvonly", "inactive"}

// MediaSummary lists the m-lines of a raw SDP as "kind:direction".
func MediaSummary(raw string) ([]string, error) {
	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal([]byte(raw)); err != nil {
		return nil, fmt.Errorf("parse sdp: %w", err)
	}
	out := make([]string, 0, len(parsed.MediaDescriptions))
	for _, md := range parsed.MediaDescriptions {
		dir := "sendrecv"
		for _, d := range directions {
			if _, ok := md.Attribute(d); ok {
				dir = d
				break
			}
		}
		out = append(out, md.MediaName.Media+":"+dir)
	}
	return out, nil
}
