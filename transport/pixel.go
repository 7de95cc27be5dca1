package transport

// PixelGIF is a 1x1 transparent GIF, answered to impression and match beacons.
var PixelGIF = []byte{
	'G', 'I', 'F', '8', '9', 'a',
	0x01, 0x00, 0x01, 0x00, 0xF0, 0x01, 0x00,
	0xFF, 0xFF, 0xFF, 0x00, 0x00, 0x00,
	0x21, 0xF9, 0x04, 0x01, 0x0A, 0x00, 0x00, 0x00,
	0x2C, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
	0x02, 0x02, 0x44, 0x01, 0x00, 0x3B,
}

// WritePixel replaces the response body with the tracking pixel.
func WritePixel(resp *Response) error {
	if err := resp.SetHeader("Content-Type", "image/gif"); err != nil {
		return err
	}
	if err := resp.SetHeader("Cache-Control", "no-cache, no-store, must-revalidate"); err != nil {
		return err
	}
	return resp.SetBody(PixelGIF)
}
