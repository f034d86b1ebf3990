package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skufu/vitreos/internal/completion"
	"github.com/Skufu/vitreos/internal/profile"
	"github.com/Skufu/vitreos/internal/prompts"
)

const imageTemperature = 0.3

// Document is an uploaded medical report.
type Document struct {
	Name     string
	MIMEType string
	Size     int64
	Content  []byte
}

func (d Document) IsImage() bool {
	return strings.HasPrefix(d.MIMEType, "image/")
}

// Scan explains an uploaded report. Images are sent inline; other types are
// described by metadata only. The result is kept for ApplyLastScan and for
// voice context.
func (s *Service) Scan(ctx context.Context, doc Document) (*ScanResult, error) {
	if strings.TrimSpace(doc.Name) == "" || doc.Size <= 0 {
		return nil, s.reject(invalid(prompts.Scan, "upload a non-empty file"))
	}
	if doc.IsImage() && len(doc.Content) == 0 {
		return nil, s.reject(invalid(prompts.Scan, "image content is empty"))
	}

	tpl, _, err := s.begin(prompts.Scan)
	if err != nil {
		return nil, err
	}

	req := completion.Request{Context: documentContext(doc)}
	if doc.IsImage() {
		req.Image = &completion.Image{MIMEType: doc.MIMEType, Data: doc.Content}
		req.Temperature = imageTemperature
	}

	var res ScanResult
	if err := s.exchange(ctx, tpl, req, &res); err != nil {
		return nil, err
	}
	res.FileName = doc.Name

	s.mu.Lock()
	s.lastScan = &res
	s.scanContext = res.context()
	s.mu.Unlock()
	return &res, nil
}

// ApplyLastScan merges the last scan's extracted fields into the profile
// and forgets the scan. It returns how many fields were applied.
func (s *Service) ApplyLastScan(ctx context.Context) (int, error) {
	s.mu.Lock()
	last := s.lastScan
	s.mu.Unlock()

	if last == nil {
		return 0, s.reject(invalid(prompts.Scan, "no scanned report to apply"))
	}
	partial := profile.FromMap(last.extracted())
	if !partial.Usable() {
		return 0, s.reject(invalid(prompts.Scan, "no structured data found to apply"))
	}

	applied, err := s.profile.ApplyExtracted(ctx, partial)
	if err != nil {
		return 0, fmt.Errorf("apply scanned fields: %w", err)
	}

	s.mu.Lock()
	if s.lastScan == last {
		s.lastScan = nil
	}
	s.mu.Unlock()
	return applied, nil
}

// LastScan returns the most recent scan result, if any.
func (s *Service) LastScan() *ScanResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastScan
}

func (s *Service) lastScanContext() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanContext
}
