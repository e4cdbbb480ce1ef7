package loader

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"energy-quote/core/types"
	"energy-quote/internal/errors"
)

func xlsx(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestFormatFor(t *testing.T) {
	f, err := FormatFor("rates/Flat File.XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = FormatFor("postcodes.csv")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = FormatFor("rates.ods")
	assert.True(t, errors.IsType(err, errors.TypeInput))
}

func TestReadRegionsCSV(t *testing.T) {
	raw := "Postcode,LDZ\nsw1a 1aa,ln\n,SC\nAB10 1AA,SC\nM1 1AA,\n"

	entries, err := ReadRegions(strings.NewReader(raw), FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, []types.RegionLookupEntry{
		{PostcodePrefix: "SW1A1AA", RegionCode: "LN"},
		{PostcodePrefix: "AB101AA", RegionCode: "SC"},
	}, entries)
}

func TestReadRegionsMissingColumn(t *testing.T) {
	_, err := ReadRegions(strings.NewReader("Postcode,Zone\nSW1A,LN\n"), FormatCSV)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeParsing))
	assert.Contains(t, err.Error(), "LDZ")
}

func TestReadTariffsXLSX(t *testing.T) {
	buf := xlsx(t,
		[]interface{}{"LDZ", "Contract_Duration", "Minimum_Annual_Consumption", "Maximum_Annual_Consumption", "Carbon_Offset", "Standing_Charge", "Unit_Rate"},
		[]interface{}{"ln", 12, 0, 10000, "No", 20.0, 4.0},
		[]interface{}{"LN", "24", "10001", "73,200", "yes", "19.5", "3.875"},
		[]interface{}{},
		[]interface{}{"SC", 12.0, 0, 10000, true, 18, 3.5},
	)

	rows, err := ReadTariffs(buf, FormatXLSX)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "LN", rows[0].RegionCode)
	assert.Equal(t, 12, rows[0].ContractDurationMonths)
	assert.False(t, rows[0].CarbonOffset)
	assert.Equal(t, "4", rows[0].UnitRate.String())
	assert.Equal(t, 2, rows[0].SourceRow)

	assert.Equal(t, 24, rows[1].ContractDurationMonths)
	assert.True(t, rows[1].CarbonOffset)
	assert.Equal(t, "73200", rows[1].MaxAnnualConsumption.String())
	assert.Equal(t, "3.875", rows[1].UnitRate.String())

	assert.True(t, rows[2].CarbonOffset)
	assert.Equal(t, 5, rows[2].SourceRow)
	assert.Nil(t, rows[2].Rates)
}

func TestReadTariffsMultiRateWithGreenColumn(t *testing.T) {
	raw := "LDZ,Contract_Duration,Minimum_Annual_Consumption,Maximum_Annual_Consumption,Green_Energy,Standing_Charge,Day_Rate,Night_Rate,Evening_And_Weekend_Rate\n" +
		"EM,12,1000,3000,YES,25,30.1,20.2,10.3\n"

	rows, err := ReadTariffs(strings.NewReader(raw), FormatCSV)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Rates)
	assert.True(t, rows[0].CarbonOffset)
	assert.Equal(t, "20.2", rows[0].Rates.Night.String())
	assert.Equal(t, "30.1", rows[0].UnitRate.String())
}

func TestReadTariffsReportsBadCells(t *testing.T) {
	raw := "LDZ,Contract_Duration,Minimum_Annual_Consumption,Maximum_Annual_Consumption,Carbon_Offset,Standing_Charge,Unit_Rate\n" +
		"LN,12,0,10000,false,20,4\n" +
		"LN,twelve,0,10000,false,20,4\n" +
		"LN,12,0,10000,maybe,20,4\n"

	_, err := ReadTariffs(strings.NewReader(raw), FormatCSV)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeParsing))

	var e *errors.Error
	require.ErrorAs(t, err, &e)
	rows := e.Context["rows"].([]string)
	require.Len(t, rows, 2)
	assert.True(t, strings.HasPrefix(rows[0], "row 3: Contract_Duration"))
	assert.True(t, strings.HasPrefix(rows[1], "row 4: Carbon_Offset"))
}

func TestReadTariffsRejectsBlankRequiredCells(t *testing.T) {
	const header = "LDZ,Contract_Duration,Minimum_Annual_Consumption,Maximum_Annual_Consumption,Carbon_Offset,Standing_Charge,Unit_Rate\n"
	const good = "LN,12,0,10000,false,20.00,4.000\n"

	tests := []struct {
		name string
		row  string
		want string
	}{
		{"blank unit rate", "LN,12,0,10000,false,20.00,", "row 3: Unit_Rate: missing value"},
		{"blank standing charge", "LN,12,0,10000,false,,4.000", "row 3: Standing_Charge: missing value"},
		{"blank maximum", "LN,12,0,,false,20.00,4.000", "row 3: Maximum_Annual_Consumption: missing value"},
		{"blank minimum", "LN,12,,10000,false,20.00,4.000", "row 3: Minimum_Annual_Consumption: missing value"},
		{"blank duration", "LN,,0,10000,false,20.00,4.000", "row 3: Contract_Duration: missing value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTariffs(strings.NewReader(header+good+tt.row+"\n"), FormatCSV)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.TypeParsing))

			var e *errors.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, []string{tt.want}, e.Context["rows"])
		})
	}
}

func TestReadTariffsSplitFileMayOmitUnitRate(t *testing.T) {
	raw := "LDZ,Contract_Duration,Minimum_Annual_Consumption,Maximum_Annual_Consumption,Carbon_Offset,Standing_Charge,Unit_Rate,Day_Rate,Night_Rate,Evening_And_Weekend_Rate\n" +
		"LN,12,0,10000,false,20,,5,3,4\n"

	rows, err := ReadTariffs(strings.NewReader(raw), FormatCSV)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].UnitRate.Equal(rows[0].Rates.Day))

	_, err = ReadTariffs(strings.NewReader(strings.Replace(raw, ",5,3,4", ",,3,4", 1)), FormatCSV)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeParsing))
}

func TestReadTariffsMissingColumns(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no band", "LDZ,Contract_Duration,Carbon_Offset,Standing_Charge,Unit_Rate", "Minimum_Annual_Consumption"},
		{"no carbon flag", "LDZ,Contract_Duration,Minimum_Annual_Consumption,Maximum_Annual_Consumption,Standing_Charge,Unit_Rate", "Carbon_Offset"},
		{"no rate", "LDZ,Contract_Duration,Minimum_Annual_Consumption,Maximum_Annual_Consumption,Carbon_Offset,Standing_Charge", "Unit_Rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTariffs(strings.NewReader(tt.header+"\n"), FormatCSV)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.TypeParsing))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadTariffTableValidatesBands(t *testing.T) {
	raw := "LDZ,Contract_Duration,Minimum_Annual_Consumption,Maximum_Annual_Consumption,Carbon_Offset,Standing_Charge,Unit_Rate\n" +
		"LN,12,10000,0,false,20,4\n"

	_, err := ReadTariffTable(strings.NewReader(raw), FormatCSV)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TypeParsing))
	assert.Contains(t, strings.Join(err.(*errors.Error).Context["rows"].([]string), ";"), "row 2")
}

func TestReadSites(t *testing.T) {
	buf := xlsx(t,
		[]interface{}{"Site Name", "Post Code", "Annual KWH", StandingUpliftColumn(12), UnitUpliftColumn(12), StandingUpliftColumn(24), UnitUpliftColumn(24)},
		[]interface{}{"Head Office", "SW1A 1AA", 5000, 5, 0.5, 0, 0},
		[]interface{}{"No Postcode", "", 5000},
		[]interface{}{"Empty Meter", "M1 1AA", 0},
		[]interface{}{"", "LS1 1AA", "12,000", "", "", 2, 0.25},
	)

	sites, skipped, err := ReadSites(buf, FormatXLSX, []int{12, 24})
	require.NoError(t, err)

	require.Len(t, sites, 2)
	assert.Equal(t, "Head Office", sites[0].Name)
	assert.Equal(t, "5", sites[0].Uplifts[12].StandingCharge.String())
	_, has24 := sites[0].Uplifts[24]
	assert.False(t, has24)

	assert.Equal(t, "Site 4", sites[1].Name)
	assert.Equal(t, "12000", sites[1].AnnualConsumptionKWh.String())
	assert.Equal(t, "0.25", sites[1].Uplifts[24].UnitRate.String())

	require.Len(t, skipped, 2)
	assert.Equal(t, 3, skipped[0].Row)
	assert.Equal(t, "no postcode", skipped[0].Reason)
	assert.Equal(t, "no annual consumption", skipped[1].Reason)
}

func TestLoadSnapshotFromDisk(t *testing.T) {
	dir := t.TempDir()
	regionPath := filepath.Join(dir, "postcodes.csv")
	require.NoError(t, os.WriteFile(regionPath, []byte("Postcode,LDZ\nSW1A 1AA,LN\n"), 0644))

	tariffPath := filepath.Join(dir, "flat.xlsx")
	buf := xlsx(t,
		[]interface{}{"LDZ", "Contract_Duration", "Minimum_Annual_Consumption", "Maximum_Annual_Consumption", "Carbon_Offset", "Standing_Charge", "Unit_Rate"},
		[]interface{}{"LN", 12, 0, 10000, "false", 20, 4},
	)
	require.NoError(t, os.WriteFile(tariffPath, buf.Bytes(), 0644))

	snap, err := LoadSnapshot(regionPath, tariffPath)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Regions.Len())
	assert.Equal(t, 1, snap.Tariffs.Len())
	assert.NotEmpty(t, snap.ID)

	next, err := ReplaceTariffs(snap, strings.NewReader(
		"LDZ,Contract_Duration,Minimum_Annual_Consumption,Maximum_Annual_Consumption,Carbon_Offset,Standing_Charge,Unit_Rate\n"+
			"LN,12,0,10000,false,21,4\nLN,24,0,10000,false,20,4\n"), "october.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, next.Tariffs.Len())
	assert.Same(t, snap.Regions, next.Regions)
	assert.NotEqual(t, snap.ContentHash, next.ContentHash)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadRegionTable(filepath.Join(t.TempDir(), "nope.csv"))
	assert.True(t, errors.IsType(err, errors.TypeInput))
}
