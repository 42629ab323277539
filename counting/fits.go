package counting

import (
	"github.com/astrogo/fitsio"
	"github.com/pkg/errors"

	"github.com/ribeiro-lab/photond/frame"
)

// record writes one calibrated ROI frame through the recorder as a FITS file
// and advances its sequence number.  Callers hold the counter lock.
func (c *Counter) record(roi frame.Frame, s Sample) error {
	cards := []fitsio.Card{
		{Name: "SESSION", Value: c.session.ID.String(), Comment: "counting session id"},
		{Name: "FRAME", Value: s.Frame, Comment: "frame index within session"},
		{Name: "MEANADU", Value: s.MeanADU, Comment: "mean ROI level [ADU]"},
		{Name: "PHOTONS", Value: s.Photons, Comment: "photon estimate per pixel"},
		{Name: "SNR", Value: s.SNR, Comment: "signal to noise ratio"},
		{Name: "DARKADU", Value: c.baseline.Dark(), Comment: "dark baseline [ADU]"},
		{Name: "BZERO", Value: 32768},
		{Name: "BSCALE", Value: 1.0},
	}
	fits, err := fitsio.Create(c.rec)
	if err != nil {
		return errors.Wrap(err, "counting: could not create FITS stream")
	}
	defer fits.Close()
	im := fitsio.NewImage(16, []int{roi.Width, roi.Height})
	defer im.Close()
	if err := im.Header().Append(cards...); err != nil {
		return err
	}
	// int16 with BZERO 32768, the usual convention for unsigned camera data
	buf := make([]int16, len(roi.Pix))
	for i := 0; i < len(roi.Pix); i++ {
		buf[i] = int16(roi.Pix[i] - 32768)
	}
	if err := im.Write(buf); err != nil {
		return err
	}
	if err := fits.Write(im); err != nil {
		return err
	}
	c.rec.Incr()
	return nil
}
