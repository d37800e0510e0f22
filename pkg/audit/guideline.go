package audit

// Criterion is one audited aspect as presented to reviewers.
type Criterion struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

type Swatch struct {
	Hex  string `json:"hex"`
	Name string `json:"name"`
}

type LogoRequirement struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Guideline is the reference sheet the rubric is derived from.
type Guideline struct {
	Criteria []Criterion       `json:"criteria"`
	Logos    []LogoRequirement `json:"logos"`
	Palette  []Swatch          `json:"palette"`
}

// Reference returns the audit guideline.
func Reference() Guideline {
	return Guideline{
		Criteria: []Criterion{
			{"01", "Kelengkapan Logo", "Audit ketersediaan empat logo wajib: Bapelkes Cikarang (Instansi), Kemenkes CorpU (Brand), BerAKHLAK (Culture), dan Zona Integritas (Integrity). Pastikan logo tidak distorsi dan memiliki resolusi tinggi."},
			{"02", "Standar Visual", "Judul materi wajib menggunakan font VAG Rounded. Konten isi menggunakan font sans-serif (Inter/Arial/Calibri) yang ergonomis. Penggunaan palet warna wajib merujuk pada Pedoman Branding Kemenkes."},
			{"03", "Video Pengantar (Opening)", "Durasi maksimal 60 detik. Wajib memuat sapaan 'ASN Pembelajar'. Presenter menyebutkan Nama, Jabatan, dan Instansi. Menjelaskan Nama Materi, Tujuan, dan Relevansi materi terhadap tugas harian."},
			{"04", "Video Penutup (Closing)", "Memuat ucapan terima kasih dan ajakan mempelajari materi selanjutnya. Wajib menyertakan Layar Penutup (Closing Screen) berisi: Nama Bapelkes Cikarang, Lokasi, Alamat Website, dan Akun Media Sosial resmi."},
			{"05", "Tim Penyusun", "Adanya slide khusus yang mencantumkan peran tim: Penanggung Jawab (Kepala Balai), Ahli Materi (WI/SME), PTP (Pengembang Teknologi Pembelajaran), dan Media Specialist."},
			{"06", "Petunjuk Penggunaan", "Instruksi navigasi yang jelas dan intuitif. Memberikan panduan bagaimana pengguna berinteraksi dengan aset (misalnya cara klik interaktivitas SCORM atau navigasi video)."},
			{"07", "Hasil Belajar", "Mencantumkan Capaian Pembelajaran atau Hasil Belajar secara eksplisit di awal aset. Harus selaras dengan kurikulum pelatihan yang telah ditetapkan."},
			{"08", "Indikator Hasil Belajar", "Mencantumkan indikator-indikator keberhasilan belajar yang dapat diukur (measurable) sebagai acuan pemahaman peserta."},
			{"09", "Jabaran Materi", "Struktur penyampaian materi yang sistematis, runtut, dan memiliki alur pedagogis yang kuat (Introduction - Body - Conclusion)."},
			{"10", "Materi Pokok", "Kedalaman substansi materi harus sesuai dengan tujuan pembelajaran. Tidak terlalu dangkal namun tidak terlalu kompleks sehingga sulit dipahami secara mandiri."},
			{"11", "Refleksi Peserta", "Adanya slide khusus 'Sekarang Saya Tahu' (SST) atau 'Key Takeaways' sebagai bentuk penguatan dan internalisasi pesan kunci dari materi."},
			{"12", "Progress Bar", "Khusus untuk aset interaktif (SCORM/Web-based), wajib memiliki indikator kemajuan belajar (Progress Bar) agar peserta mengetahui sisa materi yang harus dipelajari."},
			{"13", "Kualitas Bahasa", "Kepatuhan mutlak terhadap PUEBI dan KBBI. Audit dilakukan terhadap typo (salah ketik), penggunaan huruf kapital, spasi ganda, dan konsistensi terminologi Kemenkes CorpU."},
		},
		Logos: []LogoRequirement{
			{"Logo Bapelkes Cikarang", "Wajib diletakkan pada posisi utama (Sisi Kiri Atas atau Kanan Atas) sebagai identitas instansi penyelenggara pelatihan."},
			{"Logo Kemenkes CorpU", "Identitas tunggal Corporate University Kemenkes. Pastikan penulisan 'Kemenkes CorpU' benar (bukan CorU atau Corp-U)."},
			{"Logo BerAKHLAK", "Logo Core Values ASN. Wajib diletakkan pada slide awal atau slide akhir sebagai bentuk internalisasi budaya kerja Kemenkes."},
			{"Logo Zona Integritas", "Logo Wilayah Bebas dari Korupsi (WBK/WBBM). Simbol komitmen instansi terhadap integritas dan kualitas pelayanan."},
		},
		Palette: []Swatch{
			{"#16AF97", "Tosca"}, {"#007376", "Dark Teal"},
			{"#D2DB2F", "Yellow"}, {"#898984", "Grey"},
			{"#BFBFBF", "Light Grey"}, {"#63625E", "Dark Grey"},
			{"#2B2B29", "Black"}, {"#E4872D", "Orange"},
			{"#43B178", "Green"}, {"#C3B82B", "Olive"},
			{"#06B3BC", "Cyan"}, {"#F4F7C2", "Cream"},
			{"#C00000", "Red"}, {"#C7EDEC", "Pale Cyan"},
		},
	}
}
