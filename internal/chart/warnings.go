package chart

import (
	"edudash/internal/models"
)

// Warning roles.
const (
	RoleSeries      = "series"
	RoleMultiSeries = "multi-series"
	RoleXAxis       = "xaxis"
	RoleLabels      = "labels"
)

// CollectWarnings lists every record that lacks a key the metadata reads
// for the given family.
func CollectWarnings(data []models.DataRecord, meta *models.ChartMetadata, family models.ChartFamily) []ValidationWarning {
	if meta == nil || len(data) == 0 {
		return nil
	}

	type ref struct {
		role string
		key  string
	}

	var refs []ref

	if meta.IsArrObjSeries {
		for _, s := range meta.Series {
			refs = append(refs, ref{RoleMultiSeries, s.Key})
		}
	} else {
		refs = append(refs, ref{RoleSeries, meta.SeriesKey})
	}

	if family == models.FamilyAxis {
		refs = append(refs, ref{RoleXAxis, meta.XAxisKey})
	} else {
		refs = append(refs, ref{RoleLabels, meta.LabelKey})
	}

	var warnings []ValidationWarning

	for i, rec := range data {
		for _, r := range refs {
			if _, ok := rec[r.key]; ok {
				continue
			}

			warnings = append(warnings, ValidationWarning{
				Role:   r.role,
				Key:    r.key,
				Record: i,
			})
		}
	}

	return warnings
}
