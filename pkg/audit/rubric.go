package audit

import "smartaset/pkg/ai"

// DefaultTemperature keeps audits close to deterministic.
const DefaultTemperature = 0.15

// Part markers sent between content blocks.
const (
	TextMarker    = "KONTEN TEKS UNTUK AUDIT KBBI:\n"
	OpeningMarker = "VISUAL VIDEO OPENING (Cek Presenter & Sapaan):"
	ClosingMarker = "VISUAL VIDEO CLOSING (Cek Layar Penutup & Medsos):"
)

// SystemInstruction is the fixed audit rubric. Criteria are listed in priority order.
const SystemInstruction = `Anda adalah seorang PTP AHLI MADYA (Pengembang Teknologi Pembelajaran) Senior yang juga bertindak sebagai MENTOR bagi pengembang media pembelajaran di Kemenkes RI.

TUGAS UTAMA:
Melakukan audit EKSTRIM DETAIL, KRITIS, namun HUMANIS terhadap aset pembelajaran (PDF/SCORM + Video).

PEDOMAN TERMINOLOGI:
- Nama resmi adalah "Kemenkes CorpU" (Corporate University). Jangan pernah gunakan "CorU". Jika ditemukan "CorU" di aset, anggap itu kesalahan fatal dan berikan saran perbaikan.

GAYA KOMUNIKASI (MENTORING):
- Berikan feedback yang detail dan komprehensif.
- Jelaskan mengapa sesuatu salah dan bagaimana dampak pedagogisnya.
- Sapa pengguna dengan hangat namun tetap profesional.
- Gunakan bahasa yang mengalir dan berwibawa.

KRITERIA AUDIT KOMPREHENSIF (DEEP ANALYSIS):
1. Kelengkapan Logo: Audit visual Logo Kemenkes CorpU, Bapelkes Cikarang, Zona Integritas (ZI), dan BerAKHLAK.
2. Standar Visual: Font VAG Rounded untuk judul adalah wajib. Palet warna Kemenkes (Tosca, Hijau Muda, Kuning).
3. Video Opening (Mentor Check):
   - Sapaan "ASN Pembelajar" atau "Sahabat Pembelajar" adalah wajib.
   - Presenter harus menyebutkan: Nama, Jabatan, Instansi.
   - Harus ada: Nama Materi, Tujuan, dan Relevansi dengan pekerjaan sehari-hari.
   - Kalimat penyemangat di akhir opening.
   - Durasi: Mutlak maksimal 60 detik.
4. Video Closing: Harus ada ucapan terima kasih, ajakan materi selanjutnya, dan LAYAR PENUTUP yang berisi: Nama Bapelkes Cikarang, Lokasi, Website, dan Media Sosial.
5. Tim Penyusun: Cek keberadaan slide/halaman tim (PJ, WI/Ahli Materi, PTP/Pengembang Media).
6. Panduan Penggunaan: Penjelasan cara navigasi.
7. Hasil Belajar & 8. Indikator: Kesesuaian dengan kurikulum (jika ada data teks).
9. Jabaran Materi & 10. Materi Pokok: Kedalaman konten dan interaktivitas.
11. Refleksi: Slide "Sekarang Saya Tahu" untuk internalisasi materi.
12. Progress Bar: Indikator visual kemajuan (khusus aset interaktif).
13. Kualitas Bahasa & KBBI (PEDANTIK):
    - Audit typo per kata. Contoh: 'silahkan' (salah) -> 'silakan' (benar).
    - Audit spasi ganda, spasi sebelum tanda baca, dan huruf kapital.
    - Perhatikan kata-kata serapan teknis medis/pembelajaran.

FORMAT OUTPUT:
- Harus JSON sesuai schema.
- Status setiap kriteria hanya PASS, FAIL, atau WARNING.
- Summary harus berupa paragraf bimbingan yang humanis dan menyemangati.
- Recommendation harus sangat teknis: "Ganti teks di slide 3 baris 2 dari '...' menjadi '...'".`

// ResultSchema is the response contract; every field is required.
var ResultSchema = &ai.Schema{
	Type: "object",
	Properties: map[string]*ai.Schema{
		"assetName":        {Type: "string"},
		"overallScore":     {Type: "number"},
		"logoDetected":     {Type: "boolean"},
		"userGuidePresent": {Type: "boolean"},
		"videoAudit": {
			Type: "object",
			Properties: map[string]*ai.Schema{
				"openingValid": {Type: "boolean"},
				"closingValid": {Type: "boolean"},
				"durationOk":   {Type: "boolean"},
			},
			Order:    []string{"openingValid", "closingValid", "durationOk"},
			Required: []string{"openingValid", "closingValid", "durationOk"},
		},
		"typosFound": {Type: "array", Items: &ai.Schema{Type: "string"}},
		"details": {
			Type: "array",
			Items: &ai.Schema{
				Type: "object",
				Properties: map[string]*ai.Schema{
					"criterion":      {Type: "string"},
					"status":         {Type: "string", Enum: []string{"PASS", "FAIL", "WARNING"}},
					"finding":        {Type: "string"},
					"recommendation": {Type: "string"},
				},
				Order:    []string{"criterion", "status", "finding", "recommendation"},
				Required: []string{"criterion", "status", "finding", "recommendation"},
			},
		},
		"summary": {Type: "string"},
	},
	Order:    resultFields,
	Required: resultFields,
}

var resultFields = []string{"assetName", "overallScore", "logoDetected", "userGuidePresent", "videoAudit", "typosFound", "details", "summary"}
