package testutil

import (
	"strings"
)

// CSV joins header and rows with sep and a trailing newline
func CSV(sep string, header []string, rows ...[]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, sep))
	b.WriteByte('\n')
	for _, r := range rows {
		b.WriteString(strings.Join(r, sep))
		b.WriteByte('\n')
	}
	return b.String()
}

// AvailabilityCSV covers sites A and B across January and February 2025.
// January rows are full days, February rows are half days.
const AvailabilityCSV = `start_time;Site_Name;cell_serv_time
2025-01-10 00:00:00;A;86400
2025-01-11 00:00:00;B;86400
2025-02-10 00:00:00;A;43200
2025-02-11 00:00:00;B;43200
`

// AlarmsCSV has one active and three cleared alarms over two sites
const AlarmsCSV = `start_time;end_time;Site_Name;cell_name;alarm_id;alarm_name;alarm_status;Departamento
Aug 18, 2025 @ 06:00:00.000;Aug 18, 2025 @ 07:00:00.000;LIM001;LIM001_1;1;Cell Down;Cleared;Lima
Aug 18, 2025 @ 08:30:00.000;Aug 18, 2025 @ 09:00:00.000;LIM001;LIM001_2;2;Link Fail;Cleared;Lima
Aug 19, 2025 @ 10:00:00.000;;CUS002;CUS002_1;3;Power Alarm;Active;Cusco
Aug 20, 2025 @ 12:00:00.000;Aug 20, 2025 @ 14:00:00.000;CUS002;CUS002_1;4;Cell Down;Cleared;Cusco
`

// PerformanceCSV reports traffic for two sites over two hours
const PerformanceCSV = `start_time;Site_Name;DL_Data_Traffic_MB;UL_Data_Traffic_MB;Latency
2025-03-01 00:00:00;A;100,5;10;20
2025-03-01 01:00:00;A;200;20;22
2025-03-01 00:00:00;B;300;30;18
2025-03-01 01:00:00;B;400;40;19
`

// QualityCSV reports RRC and drop indicators for two sites
const QualityCSV = `start_time;Site_Name;LTE_RRC_SR;LTE_CDR
2025-03-01 00:00:00;A;99.5;0.4
2025-03-01 01:00:00;A;98.5;0.6
2025-03-01 00:00:00;B;97;1.2
`

// ConfigurationCSV lists bands and BTS types
const ConfigurationCSV = `Site_Name;Operation Band;TYPE BTS;Transmission;Energy Provider
A;B28;Macro;Fiber;Grid
B;B7;Macro;Microwave;Solar
C;B28;Small Cell;Fiber;Grid
`

// ProvisionCSV is a department to locality hierarchy with activation dates
const ProvisionCSV = `Site_Name;Departamento;Provincia;Distrito;Localidad;Fecha_Activacion
S1;Lima;Lima;Miraflores;Miraflores;05/01/2025
S2;Lima;Lima;Surco;Surco;12/01/2025
S3;Lima;Huaral;Huaral;Huaral;03/02/2025
S4;Cusco;Cusco;Cusco;Cusco;20/02/2025
`

// ProjectsCSV maps sites to departments
const ProjectsCSV = `Site_Name;Departamento;Provincia;lat;lon
A;Lima;Lima;-12,05;-77,04
B;Cusco;Cusco;-13,53;-71,97
`

// ProjectsGeoCSV places the alarm sites in the full geography hierarchy.
// LIM001 appears twice; the first row is the one that counts.
const ProjectsGeoCSV = `SITE_NAME;Región;Provincia;Distrito;Localidad;Latitud (WGS 84);Longitud (WGS 84)
LIM001;LIMA;LIMA;MIRAFLORES;MIRAFLORES;-12,12;-77,03
LIM001;LIMA;LIMA;SURCO;SURCO;-12,15;-77,00
CUS002;CUSCO;CUSCO;WANCHAQ;WANCHAQ;-13,52;-71,96
ARE003;AREQUIPA;AREQUIPA;CAYMA;CAYMA;-16,38;-71,54
`
